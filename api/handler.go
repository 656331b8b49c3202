// Package api adapts API Gateway proxy requests to project operations.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/jacentio/projects/project"
)

// Projects is the operation surface of *project.Service.
type Projects interface {
	Create(ctx context.Context, req project.Request, in project.Input) (*project.MutationResult, error)
	Update(ctx context.Context, req project.Request, projectID string, in project.Input) (*project.MutationResult, error)
	Get(ctx context.Context, req project.Request, projectID string, opts project.GetOptions) (*project.View, error)
	List(ctx context.Context, req project.Request, opts project.ListOptions) (*project.ListResponse, error)
	Delete(ctx context.Context, req project.Request, projectID string) (*project.MutationResult, error)
}

// Handler serves /organizations/{organizationId}/projects[/{projectId}].
type Handler struct {
	projects Projects
	logger   *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(projects Projects, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{projects: projects, logger: logger}
}

type messageBody struct {
	Message string `json:"message"`
}

type mutationBody struct {
	Message   string   `json:"message"`
	ProjectID string   `json:"project_id,omitempty"`
	Failed    []string `json:"failed_relationships,omitempty"`
}

// Handle is the Lambda entry point. Failures are always reported as HTTP
// responses, so the returned error is nil.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req := project.Request{
		OrganizationID: event.PathParameters["organizationId"],
		Actor:          actorFromRequest(event),
		EventID:        event.RequestContext.RequestID,
	}
	projectID := event.PathParameters["projectId"]

	logger := h.logger.With(
		zap.String("requestID", event.RequestContext.RequestID),
		zap.String("method", event.HTTPMethod),
		zap.String("organizationID", req.OrganizationID),
		zap.String("userID", req.Actor.UserID),
	)

	body, err := h.dispatch(ctx, event, req, projectID)
	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("projectID", projectID), zap.Error(err))
		} else {
			logger.Info("request rejected", zap.Int("status", status), zap.Error(err))
		}
		return respond(status, messageBody{Message: message}), nil
	}
	return respond(http.StatusOK, body), nil
}

func (h *Handler) dispatch(ctx context.Context, event events.APIGatewayProxyRequest, req project.Request, projectID string) (any, error) {
	switch event.HTTPMethod {
	case http.MethodPost:
		in, err := decodeInput(event.Body)
		if err != nil {
			return nil, err
		}
		res, err := h.projects.Create(ctx, req, in)
		if err != nil {
			return nil, err
		}
		return mutation("created", res), nil

	case http.MethodPut:
		if projectID == "" {
			return nil, fmt.Errorf("%w: projectId is required", errBadRequest)
		}
		in, err := decodeInput(event.Body)
		if err != nil {
			return nil, err
		}
		res, err := h.projects.Update(ctx, req, projectID, in)
		if err != nil {
			return nil, err
		}
		return mutation("updated", res), nil

	case http.MethodGet:
		teams := flag(event.QueryStringParameters["teams"])
		if projectID != "" {
			return h.projects.Get(ctx, req, projectID, project.GetOptions{Teams: teams})
		}
		opts := project.ListOptions{
			Teams:         teams,
			PaginationKey: event.QueryStringParameters["pagination_key"],
		}
		if raw := event.QueryStringParameters["limit"]; raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: limit must be an integer", errBadRequest)
			}
			opts.Limit = limit
		}
		return h.projects.List(ctx, req, opts)

	case http.MethodDelete:
		if projectID == "" {
			return nil, fmt.Errorf("%w: projectId is required", errBadRequest)
		}
		res, err := h.projects.Delete(ctx, req, projectID)
		if err != nil {
			return nil, err
		}
		return mutation("deleted", res), nil

	default:
		return nil, fmt.Errorf("%w: %s", project.ErrUnsupportedOperation, event.HTTPMethod)
	}
}

func decodeInput(body string) (project.Input, error) {
	var in project.Input
	if body == "" {
		return in, nil
	}
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return in, fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	return in, nil
}

func mutation(message string, res *project.MutationResult) mutationBody {
	body := mutationBody{Message: message}
	if res == nil {
		return body
	}
	if res.Project != nil {
		body.ProjectID = res.Project.ProjectID
	}
	for _, key := range res.Failed {
		body.Failed = append(body.Failed, key.SortKey)
	}
	return body
}

// flag treats any value other than empty, "0" or "false" as set.
func flag(v string) bool {
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"message":"internal server error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(raw),
	}
}
