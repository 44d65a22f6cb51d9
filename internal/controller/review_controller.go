package controller

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"doc-review-be/internal/constant"
	"doc-review-be/internal/dto"
	"doc-review-be/internal/pkg/serverutils"
	"doc-review-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const maxDocumentSize = 20 * 1024 * 1024

type IReviewController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetBoard(ctx *fiber.Ctx) error
	ListGroups(ctx *fiber.Ctx) error
	UploadDocument(ctx *fiber.Ctx) error
	ToggleDocument(ctx *fiber.Ctx) error
	RunCheckGroup(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	ClearChat(ctx *fiber.Ctx) error
	ResetCriteria(ctx *fiber.Ctx) error
	ExportReport(ctx *fiber.Ctx) error
	EmailReport(ctx *fiber.Ctx) error
	ListReports(ctx *fiber.Ctx) error
}

type reviewController struct {
	service   service.IReviewService
	jwtSecret string
}

func NewReviewController(service service.IReviewService, jwtSecret string) IReviewController {
	return &reviewController{service: service, jwtSecret: jwtSecret}
}

func (c *reviewController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/review/v1")
	h.Post("/sessions", c.CreateSession)
	h.Get("/groups", c.ListGroups)

	s := h.Group("", serverutils.SessionMiddleware(c.jwtSecret))
	s.Get("/board", c.GetBoard)
	s.Post("/documents", c.UploadDocument)
	s.Post("/documents/:name/toggle", c.ToggleDocument)
	s.Post("/checks/:group", c.RunCheckGroup)
	s.Post("/chat", c.SendChat)
	s.Delete("/chat", c.ClearChat)
	s.Delete("/criteria", c.ResetCriteria)
	s.Get("/report", c.ExportReport)
	s.Post("/report/email", c.EmailReport)
	s.Get("/reports", c.ListReports)
}

func sessionID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(serverutils.SessionLocal).(string)
	return id
}

func (c *reviewController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.service.CreateSession(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *reviewController) GetBoard(ctx *fiber.Ctx) error {
	res, err := c.service.GetBoard(ctx.UserContext(), sessionID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get board", res))
}

func (c *reviewController) ListGroups(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get check groups", c.service.ListGroups(ctx.UserContext())))
}

func (c *reviewController) UploadDocument(ctx *fiber.Ctx) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing multipart field 'file'")
	}
	if fh.Size > maxDocumentSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "document too large")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	res, err := c.service.UploadDocument(ctx.UserContext(), sessionID(ctx), filepath.Base(fh.Filename), content)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document uploaded", res))
}

func (c *reviewController) ToggleDocument(ctx *fiber.Ctx) error {
	name, err := url.PathUnescape(ctx.Params("name"))
	if err != nil || name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document name")
	}

	res, err := c.service.ToggleDocument(ctx.UserContext(), sessionID(ctx), name)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document toggled", res))
}

func (c *reviewController) RunCheckGroup(ctx *fiber.Ctx) error {
	res, err := c.service.RunCheckGroup(ctx.UserContext(), sessionID(ctx), ctx.Params("group"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Check group completed", res))
}

func (c *reviewController) SendChat(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendChat(ctx.UserContext(), sessionID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *reviewController) ClearChat(ctx *fiber.Ctx) error {
	if err := c.service.ClearChat(ctx.UserContext(), sessionID(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Transcript cleared", nil))
}

func (c *reviewController) ResetCriteria(ctx *fiber.Ctx) error {
	if err := c.service.ResetCriteria(ctx.UserContext(), sessionID(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Criteria reset", nil))
}

func (c *reviewController) ExportReport(ctx *fiber.Ctx) error {
	report, err := c.service.ExportReport(ctx.UserContext(), sessionID(ctx))
	if err != nil {
		return err
	}
	ctx.Set(fiber.HeaderContentType, constant.ReportMIMEType+"; charset=utf-8")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", constant.ReportFileName))
	return ctx.SendString(report)
}

func (c *reviewController) EmailReport(ctx *fiber.Ctx) error {
	var req dto.EmailReportRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.EmailReport(ctx.UserContext(), sessionID(ctx), &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Report sent", nil))
}

func (c *reviewController) ListReports(ctx *fiber.Ctx) error {
	res, err := c.service.ListReports(ctx.UserContext(), sessionID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get reports", res))
}
