package judge

import "errors"

var (
	// ErrEmptyResponse is returned when the judge backend answers with no choices.
	ErrEmptyResponse = errors.New("judge backend returned no choices")

	ErrJudgeNotFound  = errors.New("judge not found")
	ErrJudgeExists    = errors.New("judge already registered")
	ErrEmptyJudgeName = errors.New("judge name is empty")
)
