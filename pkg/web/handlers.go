package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/alik-grt/flowd/pkg/models"
	"github.com/alik-grt/flowd/pkg/persistence"
	"github.com/alik-grt/flowd/pkg/services"
	"github.com/alik-grt/flowd/pkg/triggers/webhook"
)

// APIHandlers bundles the HTTP handlers of the workflow API.
type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	webhooks         *webhook.Registry
	validator        *validator.Validate
}

// NewAPIHandlers creates the handler set for the workflow API.
func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	webhooks *webhook.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		webhooks:         webhooks,
		validator:        validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register mounts every API route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	w := app.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Patch("/:id/status", h.SetWorkflowStatus)
	w.Post("/:id/run", h.RunWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	w.Post("/:id/nodes/:nodeId/cron/arm", h.ArmCronTrigger)
	w.Post("/:id/nodes/:nodeId/cron/disarm", h.DisarmCronTrigger)
	w.Get("/:id/nodes/:nodeId/webhook", h.GetWebhookInfo)

	e := app.Group("/executions")
	e.Get("/:id", h.GetExecution)
	e.Get("/:id/nodes", h.GetExecutionNodes)

	app.All("/webhook/*", h.DispatchWebhook)

	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Save(c.Context(), req.toWorkflow(""))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	// Updates replace the full definition; the workflow must exist.
	if _, err := h.workflowService.Get(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Save(c.Context(), req.toWorkflow(id))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflowService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) SetWorkflowStatus(c fiber.Ctx) error {
	var req SetStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.SetStatus(c.Context(), c.Params("id"), req.Status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// RunWorkflow starts a manual run and waits for it to finish. A run that
// executed but failed is still a successful request; the failure lives in
// the execution record.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var req RunWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.executionService.StartRun(c.Context(), c.Params("id"), req.Input)
	if execution != nil {
		return c.Status(fiber.StatusCreated).JSON(execution)
	}

	return handleServiceError(c, err)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.workflowService.Get(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	executions, err := h.executionService.ListByWorkflow(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutionNodes(c fiber.Ctx) error {
	if _, err := h.executionService.Get(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	entries, err := h.executionService.Entries(c.Context(), c.Params("id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"nodes": entries})
}

func (h *APIHandlers) ArmCronTrigger(c fiber.Ctx) error {
	node, err := h.workflowService.ArmCron(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) DisarmCronTrigger(c fiber.Ctx) error {
	node, err := h.workflowService.DisarmCron(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) GetWebhookInfo(c fiber.Ctx) error {
	workflowID := c.Params("id")
	nodeID := c.Params("nodeId")

	path, err := h.workflowService.WebhookPath(c.Context(), workflowID, nodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WebhookInfoResponse{
		WorkflowID: workflowID,
		NodeID:     nodeID,
		Path:       path,
	})
}

// DispatchWebhook routes an incoming webhook request to its armed trigger.
// The whole request surface (method, headers, query and parsed body)
// becomes the trigger input. The caller gets the execution id as soon as
// the run exists; the run itself finishes in the background.
func (h *APIHandlers) DispatchWebhook(c fiber.Ctx) error {
	path := strings.TrimPrefix(c.Path(), "/")

	executionID, err := h.webhooks.Dispatch(c.Context(), path, webhookPayload(c, path))
	if err != nil {
		status := fiber.StatusInternalServerError

		switch {
		case errors.Is(err, webhook.ErrUnknownPath),
			errors.Is(err, webhook.ErrWorkflowNotActive),
			services.IsConflictError(err),
			persistence.IsWorkflowNotFound(err):
			status = fiber.StatusNotFound
		}

		return c.Status(status).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{"success": true, "executionId": executionID})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// webhookPayload flattens the incoming request into the trigger input map.
// A JSON body is parsed; anything else is carried as a raw string.
func webhookPayload(c fiber.Ctx, path string) map[string]any {
	headers := make(map[string]string)
	for key, values := range c.GetReqHeaders() {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	payload := map[string]any{
		"method":  c.Method(),
		"headers": headers,
		"query":   c.Queries(),
	}

	// Registered paths have the form webhook/{workflowId}/{nodeId}/{token}.
	if parts := strings.Split(path, "/"); len(parts) == 4 {
		payload["params"] = map[string]any{
			"workflowId": parts[1],
			"nodeId":     parts[2],
			"token":      parts[3],
		}
	}

	if body := c.Body(); len(body) > 0 {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			payload["body"] = parsed
		} else {
			payload["body"] = string(body)
		}
	}

	return payload
}

func (r *SaveWorkflowRequest) toWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Name:   r.Name,
		Status: r.Status,
		Nodes:  r.Nodes,
		Edges:  r.Edges,
	}
}
