package ingest

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrDenseEncoderRequired is returned when a dense encoder is not provided.
	ErrDenseEncoderRequired = errors.New("dense encoder required")

	// ErrSparseEncoderRequired is returned when a sparse encoder is not provided.
	ErrSparseEncoderRequired = errors.New("sparse encoder required")

	// ErrInconsistentVectors is returned when the dense vectors of one
	// document disagree on dimensionality.
	ErrInconsistentVectors = errors.New("inconsistent dense vector dimensions")
)
