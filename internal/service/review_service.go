package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"doc-review-be/internal/constant"
	"doc-review-be/internal/dto"
	"doc-review-be/internal/pkg/logger"
	"doc-review-be/internal/pkg/mailer"
	"doc-review-be/internal/pkg/serverutils"
	"doc-review-be/internal/repository/memory"
	"doc-review-be/internal/repository/specification"
	"doc-review-be/internal/repository/unitofwork"
	"doc-review-be/internal/websocket"
	"doc-review-be/pkg/events"
	"doc-review-be/pkg/review/binding"
	"doc-review-be/pkg/review/criteria"
	"doc-review-be/pkg/review/documents"
	"doc-review-be/pkg/review/gateway"
	"doc-review-be/pkg/review/ledger"
	"doc-review-be/pkg/review/sequencer"
	"doc-review-be/pkg/review/usage"
	"doc-review-be/pkg/store"
)

type IReviewService interface {
	CreateSession(ctx context.Context) (*dto.CreateReviewSessionResponse, error)
	GetBoard(ctx context.Context, sessionID string) (*dto.BoardResponse, error)
	ListGroups(ctx context.Context) []dto.CheckGroupDTO
	UploadDocument(ctx context.Context, sessionID, fileName string, content []byte) (*dto.ToggleDocumentResponse, error)
	ToggleDocument(ctx context.Context, sessionID, fileName string) (*dto.ToggleDocumentResponse, error)
	RunCheckGroup(ctx context.Context, sessionID, groupID string) (*dto.RunCheckGroupResponse, error)
	SendChat(ctx context.Context, sessionID string, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	ClearChat(ctx context.Context, sessionID string) error
	ResetCriteria(ctx context.Context, sessionID string) error
	ExportReport(ctx context.Context, sessionID string) (string, error)
	EmailReport(ctx context.Context, sessionID string, req *dto.EmailReportRequest) error
	ListReports(ctx context.Context, sessionID string) ([]dto.ReviewReportDTO, error)
}

// BoardNotifier pushes live board updates to the session's watchers.
type BoardNotifier interface {
	Publish(sessionID string, event websocket.Event)
}

type ReviewSettings struct {
	Rates      usage.Rates
	Assistants map[string]string
	JWTSecret  string
	TokenTTL   time.Duration
}

type reviewService struct {
	sessions   *memory.SessionRepository
	catalog    *criteria.Catalog
	gateway    gateway.Sender
	sequencer  *sequencer.Sequencer
	documents  *documents.Manager
	publisher  IPublisherService
	events     events.Publisher
	notifier   BoardNotifier
	mailer     mailer.IEmailService
	uowFactory unitofwork.RepositoryFactory
	settings   ReviewSettings
	logger     logger.ILogger
}

func NewReviewService(
	sessions *memory.SessionRepository,
	catalog *criteria.Catalog,
	gw gateway.Sender,
	docs *documents.Manager,
	publisher IPublisherService,
	eventPublisher events.Publisher,
	notifier BoardNotifier,
	emailService mailer.IEmailService,
	uowFactory unitofwork.RepositoryFactory,
	settings ReviewSettings,
	log logger.ILogger,
) IReviewService {
	if eventPublisher == nil {
		eventPublisher = events.NopPublisher{}
	}
	s := &reviewService{
		sessions:   sessions,
		catalog:    catalog,
		gateway:    gw,
		documents:  docs,
		publisher:  publisher,
		events:     eventPublisher,
		notifier:   notifier,
		mailer:     emailService,
		uowFactory: uowFactory,
		settings:   settings,
		logger:     log,
	}
	s.sequencer = sequencer.New(catalog, gw, settings.Assistants, log, sequencer.WithObserver(s.pushCheck))
	return s
}

func (s *reviewService) session(sessionID string) (*store.Session, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// acquire looks the session up and claims it for one mutating operation.
func (s *reviewService) acquire(sessionID string) (*store.Session, func(), error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	release, err := sess.Acquire()
	if err != nil {
		return nil, nil, err
	}
	return sess, release, nil
}

func (s *reviewService) CreateSession(ctx context.Context) (*dto.CreateReviewSessionResponse, error) {
	sess := store.NewSession(s.catalog, s.settings.Rates, constant.WelcomeMessage)
	if id := s.settings.Assistants[constant.DefaultPersona]; id != "" {
		sess.SetActiveAssistant(id)
	}
	s.sessions.Save(sess)

	token, err := serverutils.IssueSessionToken(s.settings.JWTSecret, sess.ID, s.settings.TokenTTL)
	if err != nil {
		s.sessions.Delete(sess.ID)
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.logger.Info("ReviewService", "Session created", map[string]interface{}{"session_id": sess.ID})
	return &dto.CreateReviewSessionResponse{
		SessionId: sess.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.settings.TokenTTL),
	}, nil
}

func (s *reviewService) GetBoard(ctx context.Context, sessionID string) (*dto.BoardResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return toBoardResponse(sess.Snapshot()), nil
}

func (s *reviewService) ListGroups(ctx context.Context) []dto.CheckGroupDTO {
	out := make([]dto.CheckGroupDTO, 0, len(s.catalog.Groups))
	for _, g := range s.catalog.Groups {
		names := make([]string, 0, len(g.Criteria))
		for _, idx := range g.Criteria {
			names = append(names, s.catalog.Criteria[idx].Name)
		}
		out = append(out, dto.CheckGroupDTO{Id: g.ID, Title: g.Title, Assistant: g.Assistant, Criteria: names})
	}
	return out
}

func (s *reviewService) UploadDocument(ctx context.Context, sessionID, fileName string, content []byte) (*dto.ToggleDocumentResponse, error) {
	sess, release, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	b := s.documents.Stage(sess, fileName, content)
	s.pushDocuments(sess)
	return toToggleResponse(b.FileName, b.State), nil
}

func (s *reviewService) ToggleDocument(ctx context.Context, sessionID, fileName string) (*dto.ToggleDocumentResponse, error) {
	sess, release, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := s.documents.Toggle(ctx, sess, fileName, nil)
	s.pushDocuments(sess)
	if err != nil {
		return nil, err
	}

	eventType := events.TypeDocumentUnbound
	if state == binding.StateBound {
		eventType = events.TypeDocumentBound
	}
	s.emit(ctx, events.New(eventType, map[string]interface{}{
		"session_id": sess.ID,
		"file_name":  fileName,
	}))
	return toToggleResponse(fileName, state), nil
}

func (s *reviewService) RunCheckGroup(ctx context.Context, sessionID, groupID string) (*dto.RunCheckGroupResponse, error) {
	sess, release, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := s.sequencer.RunCheckGroup(ctx, sess, groupID)
	if err != nil {
		return nil, err
	}

	totals := sess.Usage.Totals()
	s.notify(sess.ID, constant.BoardEventGroupDone, map[string]interface{}{
		"group_id": result.GroupID,
		"summary":  result.Summary,
		"usage":    toUsageDTO(totals),
	})
	s.archive(ctx, sess, result, totals)
	s.emit(ctx, events.New(events.TypeCheckGroupCompleted, map[string]interface{}{
		"session_id": sess.ID,
		"group_id":   result.GroupID,
		"statuses":   groupStatuses(result),
		"cost_total": totals.CostTotal,
	}))

	res := &dto.RunCheckGroupResponse{
		GroupId: result.GroupID,
		Summary: result.Summary,
		Usage:   toUsageDTO(totals),
	}
	for _, c := range result.Checks {
		res.Checks = append(res.Checks, dto.CheckResultDTO{
			Criterion: c.Criterion,
			Status:    string(c.Status),
			Color:     c.Status.Color(),
			Reply:     c.Reply,
		})
	}
	return res, nil
}

func (s *reviewService) SendChat(ctx context.Context, sessionID string, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	sess, release, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	var opts []gateway.TurnOption
	if sess.ActiveAssistant() == "" {
		fallback := s.settings.Assistants[constant.DefaultPersona]
		if fallback == "" {
			return nil, gateway.ErrNotConfigured
		}
		opts = append(opts, gateway.WithAssistant(fallback))
	}

	sess.Ledger.Append(ledger.RoleUser, req.Message)
	reply, err := s.gateway.SendTurn(ctx, sess, req.Message, opts...)
	if err != nil {
		return nil, err
	}

	totals := sess.Usage.Totals()
	s.notify(sess.ID, constant.BoardEventChat, map[string]interface{}{
		"reply": reply,
		"usage": toUsageDTO(totals),
	})
	return &dto.SendChatResponse{Reply: reply, Usage: toUsageDTO(totals)}, nil
}

func (s *reviewService) ClearChat(ctx context.Context, sessionID string) error {
	sess, release, err := s.acquire(sessionID)
	if err != nil {
		return err
	}
	defer release()

	sess.Ledger.Clear()
	s.emit(ctx, events.New(events.TypeTranscriptCleared, map[string]interface{}{"session_id": sess.ID}))
	return nil
}

func (s *reviewService) ResetCriteria(ctx context.Context, sessionID string) error {
	sess, release, err := s.acquire(sessionID)
	if err != nil {
		return err
	}
	defer release()

	sess.Board.Reset()
	for _, e := range sess.Board.Snapshot() {
		s.notify(sess.ID, constant.BoardEventCriterion, toCriterionDTO(e))
	}
	return nil
}

func (s *reviewService) ExportReport(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return "", err
	}
	return sess.Ledger.Export()
}

func (s *reviewService) EmailReport(ctx context.Context, sessionID string, req *dto.EmailReportRequest) error {
	report, err := s.ExportReport(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.mailer.SendReport(req.Email, constant.ReportFileName, report)
}

const maxListedReports = 50

func (s *reviewService) ListReports(ctx context.Context, sessionID string) ([]dto.ReviewReportDTO, error) {
	if _, err := s.session(sessionID); err != nil {
		return nil, err
	}
	if s.uowFactory == nil {
		return nil, ErrArchiveDisabled
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	reports, err := uow.ReviewReportRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: maxListedReports},
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	out := make([]dto.ReviewReportDTO, 0, len(reports))
	for _, r := range reports {
		out = append(out, dto.ReviewReportDTO{
			Id:         r.Id,
			GroupId:    r.GroupId,
			Statuses:   r.Statuses,
			Summary:    r.Summary,
			Documents:  r.Documents,
			TokenTotal: r.TokenTotal,
			CostTotal:  r.CostTotal,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}

func (s *reviewService) archive(ctx context.Context, sess *store.Session, result *sequencer.Result, totals usage.Totals) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(dto.CheckGroupCompletedMessage{
		SessionId:   sess.ID,
		GroupId:     result.GroupID,
		Statuses:    groupStatuses(result),
		Summary:     result.Summary,
		Documents:   sess.Documents.Bound(),
		TokenTotal:  totals.TokenTotal,
		CostTotal:   totals.CostTotal,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("ReviewService", "Failed to encode archive message", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Warn("ReviewService", "Failed to queue report for archive", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}
}

func (s *reviewService) emit(ctx context.Context, evt events.Event) {
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn("ReviewService", "Failed to publish event", map[string]interface{}{
			"type":  evt.EventType(),
			"error": err.Error(),
		})
	}
}

func (s *reviewService) notify(sessionID, eventType string, data interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(sessionID, websocket.Event{Type: eventType, Data: data})
}

func (s *reviewService) pushCheck(sess *store.Session, check sequencer.CheckResult) {
	s.notify(sess.ID, constant.BoardEventCriterion, dto.CriterionStatusDTO{
		Name:   check.Criterion,
		Status: string(check.Status),
		Color:  check.Status.Color(),
	})
}

func (s *reviewService) pushDocuments(sess *store.Session) {
	var docs []dto.DocumentDTO
	for _, b := range sess.Documents.List() {
		docs = append(docs, dto.DocumentDTO{FileName: b.FileName, State: string(b.State), Color: b.State.Color()})
	}
	s.notify(sess.ID, constant.BoardEventDocuments, docs)
}

func groupStatuses(result *sequencer.Result) map[string]string {
	out := make(map[string]string, len(result.Checks))
	for _, c := range result.Checks {
		out[c.Criterion] = string(c.Status)
	}
	return out
}

func toUsageDTO(t usage.Totals) dto.UsageDTO {
	return dto.UsageDTO{TokenTotal: t.TokenTotal, CostTotal: t.CostTotal}
}

func toCriterionDTO(e criteria.Entry) dto.CriterionStatusDTO {
	return dto.CriterionStatusDTO{Name: e.Name, Status: string(e.Status), Color: e.Color}
}

func toToggleResponse(fileName string, state binding.State) *dto.ToggleDocumentResponse {
	return &dto.ToggleDocumentResponse{FileName: fileName, State: string(state), Color: state.Color()}
}

func toBoardResponse(snap store.Snapshot) *dto.BoardResponse {
	res := &dto.BoardResponse{
		SessionId:       snap.ID,
		ActiveAssistant: snap.ActiveAssistantID,
		Usage:           toUsageDTO(snap.Usage),
		Criteria:        make([]dto.CriterionStatusDTO, 0, len(snap.Criteria)),
		Documents:       make([]dto.DocumentDTO, 0, len(snap.Documents)),
		Transcript:      make([]dto.TranscriptEntryDTO, 0, len(snap.Transcript)),
	}
	for _, e := range snap.Criteria {
		res.Criteria = append(res.Criteria, toCriterionDTO(e))
	}
	for _, b := range snap.Documents {
		res.Documents = append(res.Documents, dto.DocumentDTO{FileName: b.FileName, State: string(b.State), Color: b.State.Color()})
	}
	for _, m := range snap.Transcript {
		res.Transcript = append(res.Transcript, dto.TranscriptEntryDTO{Role: m.Role, Content: m.Content})
	}
	return res
}
