package domain

import "context"

// PipelineControl is the configuration gate's handle on the code-generation
// pipeline. The pipeline itself lives outside this service; the gate only
// tells it to hold or proceed.
type PipelineControl interface {
	PauseGeneration(ctx context.Context, tenantID, cardID string) error
	ResumeGeneration(ctx context.Context, tenantID string) error
}

// NopPipelineControl satisfies PipelineControl for deployments where the
// pipeline polls gate state instead of being pushed to.
type NopPipelineControl struct{}

func (NopPipelineControl) PauseGeneration(ctx context.Context, tenantID, cardID string) error {
	return nil
}

func (NopPipelineControl) ResumeGeneration(ctx context.Context, tenantID string) error {
	return nil
}
