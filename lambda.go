package sheetwatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

func isLambda() bool {
	if strings.HasPrefix(os.Getenv("AWS_EXECUTION_ENV"), "AWS_Lambda") || os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		return true
	}
	return false
}

// LambdaResponse is returned by the Lambda handler of the check command.
type LambdaResponse struct {
	NeedsUpdate bool     `json:"needsUpdate"`
	Worksheets  []string `json:"worksheets"`
	ContentHash string   `json:"contentHash"`
}

type LambdaHandlerFunc func(context.Context, json.RawMessage) (*LambdaResponse, error)

// LambdaHandler runs one check per invocation, e.g. from an EventBridge schedule.
// The invocation payload is ignored.
func (app *App) LambdaHandler() LambdaHandlerFunc {
	return func(ctx context.Context, _ json.RawMessage) (*LambdaResponse, error) {
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			slog.DebugContext(ctx, "lambda invocation", "request_id", lc.AwsRequestID)
		}
		outcome, err := app.Check(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "check failed", "details", err)
			return nil, err
		}
		return &LambdaResponse{
			NeedsUpdate: outcome.Changed,
			Worksheets:  outcome.Worksheets,
			ContentHash: outcome.ContentHash,
		}, nil
	}
}
