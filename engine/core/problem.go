package core

import (
	"errors"
	"net/http"
)

// Problem captures the information returned in an RFC 7807 error response.
type Problem struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string
	Extras   map[string]any
}

// NormalizeProblem ensures the provided problem includes canonical defaults.
func NormalizeProblem(problem *Problem) *Problem {
	if problem == nil {
		problem = &Problem{}
	}
	if problem.Status == 0 {
		problem.Status = http.StatusInternalServerError
	}
	if problem.Title == "" {
		problem.Title = http.StatusText(problem.Status)
	}
	if problem.Type == "" {
		problem.Type = "about:blank"
	}
	return problem
}

// BuildProblemBody assembles the serialized representation of the problem.
func BuildProblemBody(problem *Problem) map[string]any {
	body := map[string]any{
		"status": problem.Status,
		"error":  problem.Title,
		"type":   problem.Type,
	}
	if problem.Detail != "" {
		body["details"] = problem.Detail
	}
	if problem.Instance != "" {
		body["instance"] = problem.Instance
	}
	for key, value := range problem.Extras {
		if isReservedProblemKey(key) && key != "code" {
			continue
		}
		body[key] = value
	}
	return body
}

// ProblemFromError maps err to a problem with the given status. Coded errors
// contribute their code and details.
func ProblemFromError(status int, err error) *Problem {
	problem := &Problem{Status: status}
	if err == nil {
		return NormalizeProblem(problem)
	}
	problem.Detail = err.Error()
	var coded *Error
	if errors.As(err, &coded) {
		problem.Extras = map[string]any{"code": coded.Code}
		if len(coded.Details) > 0 {
			problem.Extras["context"] = coded.Details
		}
	}
	return NormalizeProblem(problem)
}

func isReservedProblemKey(key string) bool {
	switch key {
	case "status", "error", "details", "code", "type", "instance":
		return true
	default:
		return false
	}
}
