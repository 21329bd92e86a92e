package blackboard

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting the run state to and from a Redis
// hash. Scalar fields are stored as individual hash fields; structured
// fields are JSON-encoded into single fields. Absent hash fields decode to
// their zero values so partially written states load cleanly.

// StateToHash converts a State to a Redis hash. The event log is not part
// of the hash; events live in their own list key.
func StateToHash(s *State) (map[string]interface{}, error) {
	hash := map[string]interface{}{
		"run_id":                    s.RunID,
		"prompt":                    s.Prompt,
		"best_score":                s.BestScore,
		"codegen_iters":             s.CodegenIters,
		"last_validated_iter":       s.LastValidatedIter,
		"routed_after_iter":         s.RoutedAfterIter,
		"contract_mode":             string(s.ContractMode),
		"validation_threshold":      s.ValidationThreshold,
		"require_valid_status":      strconv.FormatBool(s.RequireValidStatus),
		"max_codegen_iters":         s.MaxCodegenIters,
		"redo_contract":             strconv.FormatBool(s.RedoContract),
		"redo_codegen":              strconv.FormatBool(s.RedoCodegen),
		"goal_reached":              strconv.FormatBool(s.GoalReached),
		"contract_seeded_by_memory": strconv.FormatBool(s.ContractSeededByMemory),
	}

	jsonFields := map[string]interface{}{
		"profile":      s.Profile,
		"tech_stack":   s.TechStack,
		"capabilities": s.Capabilities,
		"contract":     s.Contract,
		"architecture": s.Architecture,
		"generated":    s.Generated,
		"validation":   s.Validation,
		"evaluation":   s.Evaluation,
		"best_code":    s.BestCode,
		"hints":        s.Hints,
		"coach_notes":  s.CoachNotes,
		"cursors":      s.Cursors,
	}
	for field, value := range jsonFields {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", field, err)
		}
		hash[field] = string(encoded)
	}

	return hash, nil
}

// HashToState converts a Redis hash back to a State. Missing fields decode
// to zero values; numeric sentinels keep their stored values.
func HashToState(hash map[string]string) (*State, error) {
	s := &State{
		RunID:  hash["run_id"],
		Prompt: hash["prompt"],
	}

	var err error
	if s.BestScore, err = intField(hash, "best_score", -1); err != nil {
		return nil, err
	}
	if s.CodegenIters, err = intField(hash, "codegen_iters", 0); err != nil {
		return nil, err
	}
	if s.LastValidatedIter, err = intField(hash, "last_validated_iter", -1); err != nil {
		return nil, err
	}
	if s.RoutedAfterIter, err = intField(hash, "routed_after_iter", -1); err != nil {
		return nil, err
	}
	if s.ValidationThreshold, err = intField(hash, "validation_threshold", 0); err != nil {
		return nil, err
	}
	if s.MaxCodegenIters, err = intField(hash, "max_codegen_iters", 0); err != nil {
		return nil, err
	}

	s.ContractMode = ContractMode(hash["contract_mode"])
	if s.ContractMode == "" {
		s.ContractMode = ModeGuided
	}
	s.RequireValidStatus = hash["require_valid_status"] == "true"
	s.RedoContract = hash["redo_contract"] == "true"
	s.RedoCodegen = hash["redo_codegen"] == "true"
	s.GoalReached = hash["goal_reached"] == "true"
	s.ContractSeededByMemory = hash["contract_seeded_by_memory"] == "true"

	if err := decodeJSONField(hash, "profile", &s.Profile); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "tech_stack", &s.TechStack); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "capabilities", &s.Capabilities); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "contract", &s.Contract); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "architecture", &s.Architecture); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "generated", &s.Generated); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "validation", &s.Validation); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "evaluation", &s.Evaluation); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "best_code", &s.BestCode); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "hints", &s.Hints); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "coach_notes", &s.CoachNotes); err != nil {
		return nil, err
	}
	if err := decodeJSONField(hash, "cursors", &s.Cursors); err != nil {
		return nil, err
	}
	if s.Cursors == nil {
		s.Cursors = make(map[string]int64)
	}

	return s, nil
}

// EventToJSON encodes an event for the event list and Pub/Sub mirror.
func EventToJSON(ev *Event) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return string(data), nil
}

// EventFromJSON decodes an event from its list or Pub/Sub representation.
func EventFromJSON(data string) (*Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &ev, nil
}

func intField(hash map[string]string, field string, missing int) (int, error) {
	raw, ok := hash[field]
	if !ok || raw == "" {
		return missing, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s field: %w", field, err)
	}
	return value, nil
}

func decodeJSONField(hash map[string]string, field string, target interface{}) error {
	raw, ok := hash[field]
	if !ok || raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", field, err)
	}
	return nil
}
