// Package mock provides test double implementations of the encoder interfaces.
//
// This package contains mock implementations of embed.DenseEncoder and
// embed.SparseEncoder for use in unit tests. The mocks allow tests to run
// without external embedding services and enable controlled, deterministic
// behavior.
//
// By default both mocks derive stable embeddings from the input text, so
// the same text always encodes identically. Tests inject failures or
// custom vectors through the public function fields:
//
//	dense := mock.NewDenseEncoder()
//	dense.EncodeFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, embed.ErrProvider
//	}
//
// Call counts are tracked atomically, so mocks can be shared by the
// concurrent ingestion and retrieval paths under test.
package mock
