// Package preprocess implements the feature transforms applied before data is
// sharded across learners: column scaling, linear kernel PCA and label
// encoding of categorical columns.
//
// Transforms follow a Fit / Transform / FitTransform shape. Fit learns
// parameters from training rows only; Transform applies them to any rows with
// the same width, so a held-out test set is mapped into the same space:
//
//	scaler := preprocess.NewMinMaxScaler()
//	xTrain, err := scaler.FitTransform(xTrain)
//	xTest, err = scaler.Transform(xTest)
//
//	pca := preprocess.NewKernelPCA(64)
//	xTrain, err = pca.FitTransform(xTrain)
//	xTest, err = pca.Transform(xTest)
//
// Rows are [][]float64 with one slice per sample. Inputs are never modified.
package preprocess
