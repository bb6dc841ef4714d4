package retrieval

import "github.com/corpusworks/fusedex/core"

// RetrievalMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results during retrieval.
//
// BranchDone is called from the dense and sparse paths concurrently;
// implementations must tolerate that.
type RetrievalMonitor interface {
	Start(query string)
	BranchDone(branch string, hits []core.SearchHit, err error)
	FusionDone(results []*core.FusedResult)
	Finish(result *ResultSet)
}

// Branch names passed to BranchDone.
const (
	BranchDense  = "dense"
	BranchSparse = "sparse"
)

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string) {}

func (n *noopMonitor) BranchDone(_ string, _ []core.SearchHit, _ error) {}

func (n *noopMonitor) FusionDone(_ []*core.FusedResult) {}

func (n *noopMonitor) Finish(_ *ResultSet) {}
