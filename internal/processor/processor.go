package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relawanns/regworker/internal/domain/registration"
	"github.com/relawanns/regworker/internal/jobs"
	"github.com/relawanns/regworker/internal/notifications"
	"github.com/relawanns/regworker/internal/storage"
)

const (
	paymentFolderName = "Bukti Pembayaran"
	sosmedFolderName  = "Screenshot Sosmed"

	maxQuotaSettingKey = "max_quota"

	uploadMimeType = "image/jpeg"
)

type RegistrationStore interface {
	GetByID(ctx context.Context, id int64) (registration.Registration, error)
	SetProofURLs(ctx context.Context, id int64, paymentURL, tiktokURL, instagramURL string) error
	CountAll(ctx context.Context) (int, error)
}

type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
}

type ObjectStore interface {
	FetchObject(ctx context.Context, url string) ([]byte, error)
	DeleteObjects(ctx context.Context, names []string) error
}

type DriveStore interface {
	GetOrCreateFolder(ctx context.Context, name, parentID string) (string, error)
	Upload(ctx context.Context, data []byte, filename, mimeType, folderID string) (string, error)
}

type SheetStore interface {
	AppendRow(ctx context.Context, name string, row []any) error
}

type Deps struct {
	Registrations RegistrationStore
	Settings      SettingsStore
	Objects       ObjectStore
	Drive         DriveStore
	Sheets        SheetStore
	Notifier      notifications.Notifier
}

// Processor executes the enrichment pipeline for one dequeued job.
type Processor struct {
	deps   Deps
	months map[string]string
	log    *slog.Logger

	now func() time.Time
}

func New(deps Deps, logger *slog.Logger) *Processor {
	return &Processor{
		deps:   deps,
		months: DefaultMonths(),
		log:    logger,
		now:    time.Now,
	}
}

// Process runs the full pipeline. Any error from the durable steps (load,
// fetch, provision, upload, DB write, sheet append) fails the job; temp
// cleanup and notification failures are logged and swallowed because the
// data is already durable by then.
func (p *Processor) Process(ctx context.Context, job jobs.RegistrationJob) error {
	reg, err := p.deps.Registrations.GetByID(ctx, job.RegistrationID)

	if err != nil {
		return fmt.Errorf("load registration %d: %w", job.RegistrationID, err)
	}

	p.log.Info("processing registration",
		"job_id", job.ID,
		"registration_id", reg.ID,
		"registrant", reg.Name,
		"event", job.EventTitle,
	)

	buffers, err := p.fetchProofs(ctx, job)

	if err != nil {
		return err
	}

	folderName := ComposeFolderName(job.EventTitle, job.EventDate, p.months)

	folders, err := p.provisionFolders(ctx, folderName)

	if err != nil {
		return err
	}

	urls, err := p.uploadProofs(ctx, job, reg, buffers, folders)

	if err != nil {
		return err
	}

	err = p.deps.Registrations.SetProofURLs(ctx, reg.ID,
		urls[jobs.ProofPayment], urls[jobs.ProofTiktok], urls[jobs.ProofInstagram])

	if err != nil {
		return fmt.Errorf("update registration %d: %w", reg.ID, err)
	}

	if err := p.appendSheetRow(ctx, folderName, reg, urls); err != nil {
		return err
	}

	p.deleteTempObjects(ctx, job)

	p.notify(ctx, reg, urls[jobs.ProofPayment])

	return nil
}

// fetchProofs downloads all proof files in parallel.
func (p *Processor) fetchProofs(ctx context.Context, job jobs.RegistrationJob) (map[jobs.ProofKind][]byte, error) {
	var mu sync.Mutex

	buffers := make(map[jobs.ProofKind][]byte, len(job.Files))

	g, gctx := errgroup.WithContext(ctx)

	for kind, file := range job.Files {
		g.Go(func() error {
			data, err := p.deps.Objects.FetchObject(gctx, file.URL)

			if err != nil {
				return fmt.Errorf("fetch %s: %w", kind, err)
			}

			mu.Lock()
			buffers[kind] = data
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buffers, nil
}

type folderSet struct {
	payment string
	sosmed  string
}

// provisionFolders builds the three-level hierarchy: event folder with
// payment and social-proof subfolders.
func (p *Processor) provisionFolders(ctx context.Context, folderName string) (folderSet, error) {
	eventFolderID, err := p.deps.Drive.GetOrCreateFolder(ctx, folderName, "")

	if err != nil {
		return folderSet{}, fmt.Errorf("provision event folder: %w", err)
	}

	paymentID, err := p.deps.Drive.GetOrCreateFolder(ctx, paymentFolderName, eventFolderID)

	if err != nil {
		return folderSet{}, fmt.Errorf("provision payment folder: %w", err)
	}

	sosmedID, err := p.deps.Drive.GetOrCreateFolder(ctx, sosmedFolderName, eventFolderID)

	if err != nil {
		return folderSet{}, fmt.Errorf("provision sosmed folder: %w", err)
	}

	return folderSet{payment: paymentID, sosmed: sosmedID}, nil
}

// uploadProofs pushes every buffer to its designated subfolder in
// parallel and returns the durable URL per proof kind.
func (p *Processor) uploadProofs(ctx context.Context, job jobs.RegistrationJob, reg registration.Registration, buffers map[jobs.ProofKind][]byte, folders folderSet) (map[jobs.ProofKind]string, error) {
	stamp := p.now().UnixMilli()

	var mu sync.Mutex

	urls := make(map[jobs.ProofKind]string, len(buffers))

	g, gctx := errgroup.WithContext(ctx)

	for _, kind := range jobs.AllProofKinds() {
		data := buffers[kind]
		file := job.Files[kind]

		folderID := folders.sosmed
		owner := reg.FirstName()
		prefix := ""

		switch kind {
		case jobs.ProofPayment:
			// the payment proof carries the full name so operators can
			// match it against bank statements
			folderID = folders.payment
			owner = reg.Name
			prefix = "payment"
		case jobs.ProofTiktok:
			prefix = "tiktok"
		case jobs.ProofInstagram:
			prefix = "instagram"
		}

		filename := fmt.Sprintf("%s_%s_%d.%s", prefix, owner, stamp, fileExt(file.Filename))

		g.Go(func() error {
			url, err := p.deps.Drive.Upload(gctx, data, filename, uploadMimeType, folderID)

			if err != nil {
				return fmt.Errorf("upload %s: %w", kind, err)
			}

			mu.Lock()
			urls[kind] = url
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return urls, nil
}

func (p *Processor) appendSheetRow(ctx context.Context, folderName string, reg registration.Registration, urls map[jobs.ProofKind]string) error {
	row := []any{
		reg.Name,
		reg.Email,
		reg.Phone,
		reg.Age,
		reg.City,
		reg.InstagramUsername,
		reg.HistoryLabel(),
		reg.VestSize,
		urls[jobs.ProofPayment],
		urls[jobs.ProofTiktok],
		urls[jobs.ProofInstagram],
	}

	if err := p.deps.Sheets.AppendRow(ctx, folderName, row); err != nil {
		return fmt.Errorf("append spreadsheet row: %w", err)
	}

	return nil
}

// deleteTempObjects is best effort: the durable copies already exist, so
// an orphaned temp object is a cleanup nicety, not a job failure.
func (p *Processor) deleteTempObjects(ctx context.Context, job jobs.RegistrationJob) {
	names := make([]string, 0, len(job.Files))

	for _, file := range job.Files {
		names = append(names, storage.ObjectNameFromURL(file.URL))
	}

	if err := p.deps.Objects.DeleteObjects(ctx, names); err != nil {
		p.log.Warn("temp object cleanup failed", "job_id", job.ID, "error", err)
	}
}

// notify sends the group-channel message. Retries live inside the
// notifier; a final failure is logged and swallowed because steps 6-7
// already made the data durable.
func (p *Processor) notify(ctx context.Context, reg registration.Registration, paymentURL string) {
	number, quota := p.registrationStats(ctx)

	err := p.deps.Notifier.SendRegistrationNotice(ctx, notifications.RegistrationNotice{
		Name:                 reg.Name,
		Email:                reg.Email,
		Phone:                reg.Phone,
		Age:                  reg.Age,
		City:                 reg.City,
		InstagramUsername:    reg.InstagramUsername,
		ParticipationHistory: reg.HistoryLabel(),
		VestSize:             reg.VestSize,
		PaymentProofURL:      paymentURL,
		RegistrationNumber:   number,
		MaxQuota:             quota,
	})

	if err != nil {
		p.log.Error("registration notice failed", "registration_id", reg.ID, "error", err)
	}
}

// registrationStats computes the "N / quota" header of the notice. Both
// lookups are advisory; failures degrade to zeroes rather than failing a
// job that is already durable.
func (p *Processor) registrationStats(ctx context.Context) (int, int) {
	number, err := p.deps.Registrations.CountAll(ctx)

	if err != nil {
		p.log.Warn("count registrations failed", "error", err)
		number = 0
	}

	quota := 0

	raw, err := p.deps.Settings.Get(ctx, maxQuotaSettingKey)

	if err != nil {
		p.log.Warn("read max quota failed", "error", err)
	} else if n, convErr := strconv.Atoi(strings.TrimSpace(raw)); convErr == nil {
		quota = n
	}

	return number, quota
}

// fileExt returns the extension after the last dot, defaulting to jpg.
func fileExt(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		return filename[i+1:]
	}
	return "jpg"
}
