package broker

import (
	"errors"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MinCandidateChars   = 100
	MinRequirementChars = 50
)

// ValidationError rejects a request before admission. Fields maps each
// offending input to its message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msg := "invalid request"
	for i, k := range keys {
		sep := "; "
		if i == 0 {
			sep = ": "
		}
		msg += fmt.Sprintf("%s%s %s", sep, k, e.Fields[k])
	}
	return msg
}

type scoreRequest struct {
	Candidate   string `json:"candidate"`
	Requirement string `json:"requirement"`
}

func (r scoreRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Candidate,
			validation.Required,
			validation.RuneLength(MinCandidateChars, 0).Error(fmt.Sprintf("must be at least %d characters", MinCandidateChars)),
		),
		validation.Field(&r.Requirement,
			validation.Required,
			validation.RuneLength(MinRequirementChars, 0).Error(fmt.Sprintf("must be at least %d characters", MinRequirementChars)),
		),
	)
}

// Validate checks a candidate/requirement pair. It returns a
// *ValidationError when the pair may not be admitted.
func Validate(candidate, requirement string) error {
	err := scoreRequest{Candidate: candidate, Requirement: requirement}.Validate()
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return &ValidationError{Fields: map[string]string{"request": err.Error()}}
	}
	fields := make(map[string]string, len(errs))
	for k, v := range errs {
		fields[k] = v.Error()
	}
	return &ValidationError{Fields: fields}
}
