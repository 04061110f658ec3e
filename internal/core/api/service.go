// Package api provides the gRPC evaluation service.
package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solatis/ordergate/internal/carrier"
	"github.com/solatis/ordergate/internal/core/config"
	"github.com/solatis/ordergate/internal/rules"
	"github.com/solatis/ordergate/internal/validation"
	"google.golang.org/protobuf/types/known/structpb"
)

// EvaluationService implements EvaluationServer.
// Thin orchestration layer: decode the request, run the engine, hand the
// result to the carrier or validation consumer, encode the response.
type EvaluationService struct {
	engine *rules.Engine
	cfg    *config.Config
	logger *slog.Logger
}

// NewEvaluationService creates the service with its dependencies.
func NewEvaluationService(engine *rules.Engine, cfg *config.Config, logger *slog.Logger) (*EvaluationService, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &EvaluationService{engine: engine, cfg: cfg, logger: logger}, nil
}

// SelectCarrier runs first-match selection over a carrier rule set.
//
// Request:  {"rule_set_id": "...", "entity_ids": {"Order": "CMD-1", ...}}
//
//	or {"rule_set_id": "...", "context": {"Order": {"poids_total": 25, ...}}}
//
// Response: {"rule_set_id", "fingerprint", "matched", "matched_at", "match",
// "carrier", "warnings"}
func (s *EvaluationService) SelectCarrier(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Server.RequestTimeout)
	defer cancel()

	req, err := decodeRequest(in)
	if err != nil {
		return nil, toStatus(err)
	}
	if len(req.Batch) > 0 {
		return nil, toStatus(fmt.Errorf("%w: batch is only supported by ValidateOrder", errInvalidRequest))
	}

	var result rules.FirstMatchResult
	if req.Context != nil {
		set, err := s.engine.Snapshot(ctx, req.RuleSetID)
		if err != nil {
			return nil, toStatus(err)
		}
		result = s.engine.FirstMatchContext(set, req.Context)
	} else {
		result, err = s.engine.SelectFirstMatch(ctx, req.RuleSetID, req.EntityIDs)
		if err != nil {
			return nil, toStatus(err)
		}
	}

	resp := carrierResponse{
		RuleSetID:   req.RuleSetID,
		Fingerprint: result.Fingerprint,
		Matched:     result.Matched,
		MatchedAt:   result.MatchedAt,
		Warnings:    result.Warnings,
	}
	if result.Matched {
		resp.Match = &result.Match
	}
	if assignment, ok := carrier.Assign(result); ok {
		resp.Carrier = &assignment
	}
	return encodeResponse(resp)
}

// ValidateOrder runs collect-all selection over a validation rule set and
// arbitrates the matched actions by severity.
//
// Request:  {"rule_set_id", "entity_ids"} or {"rule_set_id", "context"} or
// {"rule_set_id", "batch": [{"Order": "CMD-1"}, ...]}
//
// Response: {"rule_set_id", "fingerprint", "matches", "decision", "warnings"}
// or, for a batch, {"rule_set_id", "fingerprint", "results": [...]}
func (s *EvaluationService) ValidateOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Server.RequestTimeout)
	defer cancel()

	req, err := decodeRequest(in)
	if err != nil {
		return nil, toStatus(err)
	}

	if len(req.Batch) > 0 {
		return s.validateBatch(ctx, req)
	}

	var result rules.CollectAllResult
	if req.Context != nil {
		set, err := s.engine.Snapshot(ctx, req.RuleSetID)
		if err != nil {
			return nil, toStatus(err)
		}
		result = s.engine.CollectAllContext(set, req.Context)
	} else {
		result, err = s.engine.CollectAllMatches(ctx, req.RuleSetID, req.EntityIDs)
		if err != nil {
			return nil, toStatus(err)
		}
	}

	return encodeResponse(validationResponse{
		RuleSetID:   req.RuleSetID,
		Fingerprint: result.Fingerprint,
		validationResult: validationResult{
			Matches:  result.Matches,
			Decision: validation.Decide(result),
			Warnings: result.Warnings,
		},
	})
}

func (s *EvaluationService) validateBatch(ctx context.Context, req evaluationRequest) (*structpb.Struct, error) {
	if len(req.Batch) > s.cfg.Engine.MaxBatchSize {
		return nil, toStatus(fmt.Errorf("%w: batch of %d exceeds max_batch_size %d", errInvalidRequest, len(req.Batch), s.cfg.Engine.MaxBatchSize))
	}

	items, err := s.engine.CollectAllBatch(ctx, req.RuleSetID, req.Batch)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := batchResponse{RuleSetID: req.RuleSetID, Results: make([]batchResult, 0, len(items))}
	for _, item := range items {
		r := batchResult{EntityIDs: item.IDs}
		if item.Err != nil {
			r.Error = item.Err.Error()
			s.logger.Warn("batch item failed",
				"rule_set_id", req.RuleSetID,
				"entity_ids", item.IDs,
				"error", item.Err)
		} else {
			resp.Fingerprint = item.Result.Fingerprint
			r.validationResult = validationResult{
				Matches:  item.Result.Matches,
				Decision: validation.Decide(item.Result),
				Warnings: item.Result.Warnings,
			}
		}
		resp.Results = append(resp.Results, r)
	}
	return encodeResponse(resp)
}
