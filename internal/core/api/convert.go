package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/solatis/ordergate/internal/carrier"
	"github.com/solatis/ordergate/internal/rules"
	"github.com/solatis/ordergate/internal/types"
	"github.com/solatis/ordergate/internal/validation"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Struct documents are bridged through their canonical JSON form so the
// request and response shapes are plain tagged Go structs.

type evaluationRequest struct {
	RuleSetID types.RuleSetID     `json:"rule_set_id"`
	EntityIDs types.EntityIDs     `json:"entity_ids,omitempty"`
	Context   types.RecordContext `json:"context,omitempty"`
	Batch     []types.EntityIDs   `json:"batch,omitempty"`
}

type carrierResponse struct {
	RuleSetID   types.RuleSetID           `json:"rule_set_id"`
	Fingerprint string                    `json:"fingerprint,omitempty"`
	Matched     bool                      `json:"matched"`
	MatchedAt   int                       `json:"matched_at"`
	Match       *rules.Match              `json:"match,omitempty"`
	Carrier     *carrier.Assignment       `json:"carrier,omitempty"`
	Warnings    []rules.EvaluationWarning `json:"warnings,omitempty"`
}

type validationResult struct {
	Matches  []rules.Match             `json:"matches"`
	Decision validation.Decision       `json:"decision"`
	Warnings []rules.EvaluationWarning `json:"warnings,omitempty"`
}

type validationResponse struct {
	RuleSetID   types.RuleSetID `json:"rule_set_id"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	validationResult
}

type batchResult struct {
	EntityIDs types.EntityIDs `json:"entity_ids"`
	Error     string          `json:"error,omitempty"`
	validationResult
}

type batchResponse struct {
	RuleSetID   types.RuleSetID `json:"rule_set_id"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Results     []batchResult   `json:"results"`
}

// decodeRequest validates the request shape. Exactly one of entity_ids,
// context or batch must be present.
func decodeRequest(in *structpb.Struct) (evaluationRequest, error) {
	var req evaluationRequest
	if in == nil {
		return req, fmt.Errorf("%w: empty request", errInvalidRequest)
	}

	blob, err := protojson.Marshal(in)
	if err != nil {
		return req, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	if req.RuleSetID == "" {
		return req, fmt.Errorf("%w: rule_set_id is required", errInvalidRequest)
	}

	sources := 0
	if req.EntityIDs != nil {
		sources++
	}
	if req.Context != nil {
		sources++
	}
	if req.Batch != nil {
		if len(req.Batch) == 0 {
			return req, fmt.Errorf("%w: batch is empty", errInvalidRequest)
		}
		sources++
	}
	if sources != 1 {
		return req, fmt.Errorf("%w: exactly one of entity_ids, context or batch is required", errInvalidRequest)
	}
	return req, nil
}

func encodeResponse(v any) (*structpb.Struct, error) {
	blob, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(blob, out); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return out, nil
}
