package controller

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/pkg/serverutils"
	"ai-docchat-be/internal/service"
	internalWS "ai-docchat-be/internal/websocket"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	EndSession(ctx *fiber.Ctx) error
	UploadDocuments(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService   service.IChatService
	ingestService service.IIngestService
	hub           *internalWS.Hub
}

func NewChatController(
	chatService service.IChatService,
	ingestService service.IIngestService,
	hub *internalWS.Hub,
) IChatController {
	return &chatController{
		chatService:   chatService,
		ingestService: ingestService,
		hub:           hub,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("session", c.CreateSession)
	h.Delete("session/:id", c.EndSession)
	h.Post("session/:id/documents", c.UploadDocuments)
	h.Get("session/:id/ws", c.ServeWs)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	session, err := c.chatService.StartSession(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", dto.CreateSessionResponse{
		Id:        session.ID,
		CreatedAt: session.CreatedAt,
	}))
}

func (c *chatController) EndSession(ctx *fiber.Ctx) error {
	c.chatService.EndSession(ctx.Params("id"))
	return ctx.JSON(serverutils.SuccessResponse[any]("Success end session", nil))
}

func (c *chatController) UploadDocuments(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")

	form, err := ctx.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Expected multipart form upload")
	}

	var files []service.UploadedFile
	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Unreadable file: "+header.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Unreadable file: "+header.Filename)
		}
		files = append(files, service.UploadedFile{Name: header.Filename, Data: data})
	}

	result, err := c.ingestService.Ingest(ctx.Context(), sessionID, files)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUpload) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload documents", dto.UploadDocumentsResponse{
		Files:   result.Files,
		Skipped: result.Skipped,
		Chunks:  result.Chunks,
	}))
}

// ServeWs upgrades the connection and binds it to the session for the
// connection's lifetime. Session state is destroyed on disconnect.
func (c *chatController) ServeWs(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")

	if websocket.IsWebSocketUpgrade(ctx) {
		return websocket.New(func(conn *websocket.Conn) {
			internalWS.ServeWs(c.hub, conn, sessionID, c.chatService.HandleMessage)
		})(ctx)
	}
	return fiber.ErrUpgradeRequired
}
