package requestdata

import (
	"context"
)

type contextKey struct{}

var requestDataKey = contextKey{}

// RequestData carries the authenticated principal for one request. For LMS
// and SCORM bridge calls this is the learner; for LRS calls LearnerID is zero
// and Authority holds the basic-auth username that submitted the statement.
type RequestData struct {
	LearnerID    uint
	LearnerEmail string
	LearnerName  string
	Authority    string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}
