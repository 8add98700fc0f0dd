package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/domain/orphans"
	"github.com/louisbranch/folio/internal/services/site/domain/seo"
	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/flash"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
	"go.uber.org/zap"
)

// Uploads serves the /admin/uploads/ listing.
type Uploads struct {
	service UploadLister
}

// NewUploads returns the upload listing module.
func NewUploads(service UploadLister) Uploads {
	return Uploads{service: service}
}

// ID returns a stable module identifier.
func (Uploads) ID() string { return "admin-uploads" }

// Mount wires the upload listing.
func (m Uploads) Mount(deps module.Dependencies) (module.Mount, error) {
	b := newBase(deps)
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.AdminUploadsPrefix+"{$}", func(w http.ResponseWriter, r *http.Request) {
		page := listing.NewPage(httpx.PageParam(r), pageSize, pageSize)
		result, err := m.service.List(r.Context(), page)
		if err != nil {
			b.WriteError(w, r, err)
			return
		}
		b.page(w, r, "admin.uploads.title", http.StatusOK, func(loc templates.Localizer) templ.Component {
			return templates.Uploads(loc, templates.UploadsView{Page: result, Pager: page.Paginate(result.Total)})
		})
	})
	mux.HandleFunc(routepath.AdminUploadsPrefix, b.WriteNotFound)
	return module.Mount{Prefix: routepath.AdminUploadsPrefix, Handler: mux}, nil
}

// OrphanService scans and cleans unreferenced uploads.
type OrphanService interface {
	ScanReader
	Scan(ctx context.Context, now time.Time) (orphans.Report, error)
	Clean(ctx context.Context, report orphans.Report, dryRun bool) (orphans.Clean, error)
	Grace() time.Duration
}

// Orphans serves /admin/orphans/.
type Orphans struct {
	service OrphanService
}

// NewOrphans returns the orphan cleanup module.
func NewOrphans(service OrphanService) Orphans {
	return Orphans{service: service}
}

// ID returns a stable module identifier.
func (Orphans) ID() string { return "admin-orphans" }

// Mount wires scan and clean handlers.
func (m Orphans) Mount(deps module.Dependencies) (module.Mount, error) {
	h := orphanHandlers{base: newBase(deps), service: m.service}
	prefix := routepath.AdminOrphansPrefix
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+prefix+"{$}", h.handleReport)
	mux.HandleFunc(http.MethodPost+" "+prefix+"scan", h.handleScan)
	mux.HandleFunc(http.MethodPost+" "+prefix+"clean", h.handleClean)
	mux.HandleFunc(prefix, h.WriteNotFound)
	return module.Mount{Prefix: prefix, Handler: mux}, nil
}

type orphanHandlers struct {
	base
	service OrphanService
}

func (h orphanHandlers) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok, err := h.service.LastScan(r.Context())
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	view := templates.OrphansView{Grace: formatGrace(h.service.Grace())}
	if ok {
		view.Report = &report
	}
	h.page(w, r, "admin.orphans.title", http.StatusOK, func(loc templates.Localizer) templ.Component {
		return templates.Orphans(loc, view)
	})
}

func (h orphanHandlers) handleScan(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Scan(r.Context(), time.Now())
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.Redirect(w, r, routepath.AdminOrphansPrefix, flash.Success("notice.orphans.scanned",
		strconv.Itoa(len(report.Orphans)), report.OrphanSize()))
}

// handleClean removes the orphans of the last scan, scanning first when
// none is stored. A real clean rescans so the page shows what is left.
func (h orphanHandlers) handleClean(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dryRun := r.URL.Query().Get("dry_run") == "1"
	report, ok, err := h.service.LastScan(ctx)
	if err == nil && !ok {
		report, err = h.service.Scan(ctx, time.Now())
	}
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	result, err := h.service.Clean(ctx, report, dryRun)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.Logger().Info("orphan clean",
		zap.Bool("dry_run", dryRun),
		zap.Int("files", result.DeletedFiles),
		zap.Int64("rows", result.DeletedRows),
		zap.String("freed", result.FreedSize()),
	)
	key := "notice.orphans.dry_run"
	if !dryRun {
		key = "notice.orphans.cleaned"
		if _, err := h.service.Scan(ctx, time.Now()); err != nil {
			h.Logger().Warn("rescan after clean", zap.Error(err))
		}
	}
	h.Redirect(w, r, routepath.AdminOrphansPrefix, flash.Success(key,
		strconv.Itoa(result.DeletedFiles), strconv.FormatInt(result.DeletedRows, 10), result.FreedSize()))
}

func formatGrace(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}

// SubmissionLog lists recent IndexNow requests.
type SubmissionLog interface {
	ListSubmissions(ctx context.Context, limit int) ([]storage.Submission, error)
}

// SitemapSubmitter submits every public URL.
type SitemapSubmitter interface {
	SubmitAll(ctx context.Context, submitter seo.Submitter) (int, error)
}

// IndexNowSources wires the IndexNow admin page. Submitter is nil when
// IndexNow is not configured.
type IndexNowSources struct {
	Log       SubmissionLog
	Sitemap   SitemapSubmitter
	Submitter seo.Submitter
}

// IndexNow serves /admin/indexnow/.
type IndexNow struct {
	sources IndexNowSources
}

// NewIndexNow returns the IndexNow admin module.
func NewIndexNow(sources IndexNowSources) IndexNow {
	return IndexNow{sources: sources}
}

// ID returns a stable module identifier.
func (IndexNow) ID() string { return "admin-indexnow" }

// Mount wires the submission log and manual submit.
func (m IndexNow) Mount(deps module.Dependencies) (module.Mount, error) {
	h := indexNowHandlers{base: newBase(deps), sources: m.sources}
	prefix := routepath.AdminIndexNowPrefix
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+prefix+"{$}", h.handleLog)
	mux.HandleFunc(http.MethodPost+" "+prefix+"submit-all", h.handleSubmitAll)
	mux.HandleFunc(prefix, h.WriteNotFound)
	return module.Mount{Prefix: prefix, Handler: mux}, nil
}

const submissionLogSize = 50

type indexNowHandlers struct {
	base
	sources IndexNowSources
}

func (h indexNowHandlers) handleLog(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.sources.Log.ListSubmissions(r.Context(), submissionLogSize)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	h.page(w, r, "admin.indexnow.title", http.StatusOK, func(loc templates.Localizer) templ.Component {
		return templates.IndexNow(loc, templates.IndexNowView{
			Enabled:     h.sources.Submitter != nil,
			Submissions: submissions,
		})
	})
}

func (h indexNowHandlers) handleSubmitAll(w http.ResponseWriter, r *http.Request) {
	if h.sources.Submitter == nil {
		h.WriteError(w, r, apperrors.EK(apperrors.KindUnavailable, "error.indexnow.disabled", "indexnow is not configured"))
		return
	}
	n, err := h.sources.Sitemap.SubmitAll(r.Context(), h.sources.Submitter)
	if err != nil {
		h.Logger().Warn("indexnow submit all", zap.Int("urls", n), zap.Error(err))
		h.Redirect(w, r, routepath.AdminIndexNowPrefix, flash.Failure("notice.indexnow.failed"))
		return
	}
	h.Redirect(w, r, routepath.AdminIndexNowPrefix, flash.Success("notice.indexnow.submitted", strconv.Itoa(n)))
}
