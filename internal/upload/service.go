package upload

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/rotaops/ingest/internal/domain"
	"github.com/rotaops/ingest/internal/ratelimit"
	"github.com/rotaops/ingest/internal/repository"

	"github.com/google/uuid"
)

// Phase names the orchestrator's position in one upload run.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseClearing   Phase = "clearing"
	PhaseProcessing Phase = "processing"
	PhaseInserting  Phase = "inserting"
	PhaseRefreshing Phase = "refreshing"
	PhaseDone       Phase = "done"
)

// File is one uploaded spreadsheet held in memory for the duration of the run.
type File struct {
	Name     string
	Size     int64
	MIMEType string
	Data     []byte
}

// Request describes one upload invocation.
type Request struct {
	OrganizationID uuid.UUID
	Kind           domain.UploadKind
	Overwrite      bool
	Files          []File
	OnProgress     func(State)
}

// State is the mutable progress record owned by one invocation.
type State struct {
	Uploading        bool   `json:"uploading"`
	Phase            Phase  `json:"phase"`
	Progress         int    `json:"progress"`
	ProgressLabel    string `json:"progressLabel"`
	Message          string `json:"message"`
	CurrentFileIndex int    `json:"currentFileIndex"`
}

// Result summarizes one upload run for the caller.
type Result struct {
	Message      string   `json:"message"`
	Inserted     int      `json:"inserted"`
	SuccessFiles int      `json:"successFiles"`
	ErrorFiles   int      `json:"errorFiles"`
	Errors       []string `json:"errors"`
}

// Service drives end-to-end uploads: validate, parse, map, batch-insert, and
// trigger the post-upload view refresh.
type Service struct {
	validator    Validator
	inserter     *BatchInserter
	data         repository.UploadDataRepository
	logs         repository.UploadLogRepository
	uploadErrors repository.UploadErrorRepository
	limiter      *ratelimit.Limiter
	refresher    *Refresher
}

// NewService wires an upload service.
func NewService(
	validator Validator,
	inserter *BatchInserter,
	data repository.UploadDataRepository,
	logs repository.UploadLogRepository,
	uploadErrors repository.UploadErrorRepository,
	limiter *ratelimit.Limiter,
	refresher *Refresher,
) *Service {
	return &Service{
		validator:    validator,
		inserter:     inserter,
		data:         data,
		logs:         logs,
		uploadErrors: uploadErrors,
		limiter:      limiter,
		refresher:    refresher,
	}
}

// Process runs one upload invocation. Files are processed strictly in order;
// a single file's failure is recorded and does not stop the remaining files.
func (s *Service) Process(ctx context.Context, req Request) (Result, error) {
	result := Result{Errors: []string{}}

	if req.OrganizationID == uuid.Nil {
		return result, fmt.Errorf("organization id is required")
	}
	if len(req.Files) == 0 {
		return result, fmt.Errorf("at least one file is required")
	}

	cfg, ok := ConfigFor(req.Kind)
	if !ok {
		return result, fmt.Errorf("%w: %s", ErrUnknownKind, req.Kind)
	}

	// Pre-flight rate limit: no partial work happens when denied.
	if s.limiter != nil {
		allowed, wait := s.limiter.Allow(req.OrganizationID.String())
		if !allowed {
			minutes := int(math.Ceil(wait.Minutes()))
			if minutes < 1 {
				minutes = 1
			}
			result.Message = fmt.Sprintf("⏳ Muitos uploads recentes. Aguarde %d minutos.", minutes)
			return result, fmt.Errorf("%w: retry in %d minutes", ErrRateLimited, minutes)
		}
	}

	runLog := domain.NewUploadLog(req.OrganizationID, req.Kind, cfg.Table, len(req.Files))
	if s.logs != nil {
		if err := s.logs.Create(ctx, runLog); err != nil {
			log.Printf("[UPLOAD] failed to create upload log: %v", err)
		}
		if err := s.logs.MarkProcessing(ctx, runLog.ID); err != nil {
			log.Printf("[UPLOAD] failed to mark upload log processing: %v", err)
		}
	}

	tracker := newProgressTracker(req.OnProgress)
	tracker.update(PhaseProcessing, 0, "Iniciando upload", 0)

	var clearingShare float64
	if req.Overwrite {
		clearingShare = 10
		tracker.update(PhaseClearing, 0, "Limpando dados existentes", 0)
		if err := s.clearTable(ctx, cfg); err != nil {
			// The raw backend error goes to the error log; clients only see
			// the classified message.
			result.Message = clearFailureMessage(err)
			s.recordError(ctx, req, "", nil, err)
			s.finishLog(ctx, runLog.ID, domain.UploadStatusFailure, 0, result.Message)
			tracker.finish(result.Message)
			return result, fmt.Errorf("failed to clear %s before upload: %w", cfg.Table, err)
		}
		tracker.update(PhaseClearing, clearingShare, "Dados existentes removidos", 0)
	}

	fileShare := (100 - clearingShare) / float64(len(req.Files))
	accepted := 0
	var lastError string

	for i, file := range req.Files {
		base := clearingShare + fileShare*float64(i)
		label := fmt.Sprintf("Processando arquivo %d/%d: %s", i+1, len(req.Files), file.Name)
		tracker.update(PhaseProcessing, base, label, i)

		insertResult, err := s.processFile(ctx, cfg, req, file, accepted, func(inserted, total int) {
			fraction := 0.0
			if total > 0 {
				fraction = float64(inserted) / float64(total)
			}
			tracker.update(PhaseInserting, base+fileShare*fraction, label, i)
		})

		result.Inserted += insertResult.Inserted
		for _, msg := range insertResult.Errors {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", file.Name, msg))
			lastError = msg
			s.recordError(ctx, req, file.Name, nil, fmt.Errorf("%s", msg))
		}

		if err != nil {
			result.ErrorFiles++
			message := fmt.Sprintf("%s: %v", file.Name, err)
			result.Errors = append(result.Errors, message)
			lastError = err.Error()
			s.recordError(ctx, req, file.Name, nil, err)
			log.Printf("[UPLOAD] %s failed: %v", file.Name, err)
			continue
		}

		accepted++
		result.SuccessFiles++
		tracker.update(PhaseInserting, clearingShare+fileShare*float64(i+1), label, i)
	}

	tracker.update(PhaseRefreshing, 100, "Atualizando visualizações", len(req.Files)-1)
	if s.refresher != nil && cfg.RefreshRPC != "" {
		// Fire-and-forget: completion is not gated on the view rebuild.
		s.refresher.Trigger(cfg.RefreshRPC)
	}

	if len(result.Errors) == 0 {
		result.Message = fmt.Sprintf("✅ Sucesso! %d registros de %d arquivos.", result.Inserted, len(req.Files))
		s.finishLog(ctx, runLog.ID, domain.UploadStatusSuccess, result.Inserted, result.Message)
	} else {
		result.Message = fmt.Sprintf("⚠️ %d ok, %d erro. Total: %d. Erro: %s",
			result.SuccessFiles, result.ErrorFiles, result.Inserted, lastError)
		s.finishLog(ctx, runLog.ID, domain.UploadStatusFailure, result.Inserted, result.Message)
	}

	tracker.finish(result.Message)
	return result, nil
}

func (s *Service) processFile(ctx context.Context, cfg Config, req Request, file File, accepted int, progress ProgressFunc) (InsertResult, error) {
	meta := FileMeta{
		Name:     file.Name,
		Size:     file.Size,
		MIMEType: file.MIMEType,
		Head:     headBytes(file.Data),
	}
	if err := s.validator.Validate(meta, accepted); err != nil {
		return InsertResult{}, err
	}

	sheet, err := parseSheet(file.Data)
	if err != nil {
		return InsertResult{}, err
	}

	records := mapRows(cfg, sheet)
	if len(records) == 0 {
		return InsertResult{}, fmt.Errorf("no usable rows found in %s", file.Name)
	}

	return s.inserter.Insert(ctx, cfg, records, req.OrganizationID.String(), progress)
}

func clearFailureMessage(err error) string {
	switch Classify(err) {
	case TagPermissionDenied:
		return "⚠️ Permissão negada ao limpar os dados existentes."
	case TagNotFound:
		return "⚠️ Função de limpeza não encontrada no banco."
	case TagTimeout:
		return "⚠️ Tempo esgotado ao limpar os dados existentes."
	default:
		return "⚠️ Erro ao limpar os dados existentes. Tente novamente."
	}
}

func (s *Service) clearTable(ctx context.Context, cfg Config) error {
	callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	return s.data.DeleteAll(callCtx, cfg.Table, cfg.DeleteRPC)
}

func (s *Service) recordError(ctx context.Context, req Request, fileName string, batchNumber *int, err error) {
	if s.uploadErrors == nil || err == nil {
		return
	}
	entry := domain.UploadErrorEntry{
		OrganizationID: req.OrganizationID,
		Kind:           req.Kind,
		FileName:       fileName,
		BatchNumber:    batchNumber,
		ErrorMessage:   err.Error(),
	}
	if recordErr := s.uploadErrors.Record(ctx, entry); recordErr != nil {
		log.Printf("[UPLOAD] failed to record upload error: %v", recordErr)
	}
}

func (s *Service) finishLog(ctx context.Context, id uuid.UUID, status domain.UploadStatus, rows int, message string) {
	if s.logs == nil {
		return
	}
	if err := s.logs.Finish(ctx, id, status, rows, message); err != nil {
		log.Printf("[UPLOAD] failed to finish upload log: %v", err)
	}
}

func headBytes(data []byte) []byte {
	if len(data) > 8 {
		return data[:8]
	}
	return data
}

// progressTracker keeps the reported percentage monotonically non-decreasing
// across the clearing phase and each file's share of the remaining budget.
type progressTracker struct {
	onProgress func(State)
	state      State
}

func newProgressTracker(onProgress func(State)) *progressTracker {
	return &progressTracker{
		onProgress: onProgress,
		state:      State{Uploading: true, Phase: PhaseIdle},
	}
}

func (p *progressTracker) update(phase Phase, progress float64, label string, fileIndex int) {
	pct := int(progress)
	if pct > 100 {
		pct = 100
	}
	if pct < p.state.Progress {
		pct = p.state.Progress
	}
	p.state.Phase = phase
	p.state.Progress = pct
	p.state.ProgressLabel = label
	p.state.CurrentFileIndex = fileIndex
	p.emit()
}

func (p *progressTracker) finish(message string) {
	p.state.Uploading = false
	p.state.Phase = PhaseDone
	p.state.Progress = 100
	p.state.Message = message
	p.emit()
}

func (p *progressTracker) emit() {
	if p.onProgress != nil {
		p.onProgress(p.state)
	}
}
