package runner

import (
	"context"

	"github.com/aretw0/ratlab/pkg/domain"
)

// RichResponse combines the entries of one submission with the full history
// for rich clients (Web, MCP, etc).
type RichResponse struct {
	Entries    domain.Transcript `json:"entries"`
	Transcript domain.Transcript `json:"transcript"`
}

// SubmitAndCollect submits text and splits the result into the pair it
// produced and the whole transcript.
//
// A store failure after evaluation still returns the response together with
// the error, so the adapter can decide how to log/handle it.
func SubmitAndCollect(ctx context.Context, sub Submitter, text string) (*RichResponse, error) {
	tr, err := sub.Submit(ctx, text)
	if tr == nil {
		return nil, err
	}
	return &RichResponse{
		Entries:    tr.Since(len(tr) - 2),
		Transcript: tr,
	}, err
}
