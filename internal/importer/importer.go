package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bankbang/internal/logger"
	"bankbang/internal/metrics"
	"bankbang/internal/models"

	"gorm.io/gorm"
)

// JobUpserter вставляет или обновляет вакансию по source_id
type JobUpserter interface {
	UpsertBySource(ctx context.Context, db *gorm.DB, job *models.JobListing) (created bool, err error)
}

type CompanyEnsurer interface {
	EnsureByName(ctx context.Context, db *gorm.DB, name string) (*models.Company, error)
}

type Options struct {
	DryRun bool
	Source string
	Now    time.Time
}

type Result struct {
	Total        int      `json:"total"`
	Inserted     int      `json:"inserted"`
	Updated      int      `json:"updated"`
	Skipped      int      `json:"skipped"`
	Shifted      int      `json:"shifted"`
	ShiftedLines []int    `json:"shifted_lines,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	DryRun       bool     `json:"dry_run"`
}

func (r *Result) warn(line int, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("row %d: ", line)+fmt.Sprintf(format, args...))
}

// ParsedJob - нормализованная вакансия и номер ее строки в таблице (с 1)
type ParsedJob struct {
	Line int
	Job  models.JobListing
}

var errDryRun = errors.New("dry run")

// Parse превращает сырые строки в вакансии. БД не трогает.
func Parse(rows [][]string, opts Options) ([]ParsedJob, *Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	source := opts.Source
	if source == "" {
		source = "spreadsheet"
	}

	header, err := FindHeader(rows)
	if err != nil {
		return nil, nil, err
	}
	width := len(rows[header.Row])

	res := &Result{DryRun: opts.DryRun}
	var out []ParsedJob
	for i := header.Row + 1; i < len(rows); i++ {
		line := i + 1
		row := rows[i]
		if isBlank(row) {
			continue
		}
		res.Total++

		shift := detectShift(row, header, now)
		switch {
		case shift.Conflict:
			res.warn(line, "url and deadline cells disagree on column offset, row kept as-is")
		case shift.Offset != 0:
			row = realign(row, shift.Offset, width)
			res.Shifted++
			res.ShiftedLines = append(res.ShiftedLines, line)
		}

		cell := func(f Field) string {
			col, ok := header.Col(f)
			if !ok || col >= len(row) {
				return ""
			}
			return CleanText(row[col])
		}

		company, title := cell(FieldCompany), cell(FieldTitle)
		if company == "" || title == "" {
			res.Skipped++
			res.warn(line, "missing company or title, skipped")
			continue
		}

		city := strings.Join(SplitCities(cell(FieldCity)), "/")
		applyURL := ""
		if raw := cell(FieldApplyURL); raw != "" {
			if LooksLikeURL(raw) {
				applyURL = NormalizeURL(raw)
			} else {
				res.warn(line, "apply url %q does not look like a link", raw)
			}
		}

		job := models.JobListing{
			CompanyName: company,
			Title:       title,
			City:        city,
			Category:    MapCategory(cell(FieldCategory), title),
			Education:   cell(FieldEducation),
			Major:       cell(FieldMajor),
			Description: cell(FieldDescription),
			ApplyURL:    applyURL,
			Source:      source,
			PublishedAt: now,
			Status:      models.JobStatusOpen,
		}
		sourceID := SourceID(company, title, city, applyURL)
		job.SourceID = &sourceID

		if raw := cell(FieldDeadline); raw != "" {
			if deadline, ok := ParseDeadline(raw, now); ok {
				job.Deadline = deadline
				if deadline.Before(now) {
					job.Status = models.JobStatusClosed
				}
			} else {
				res.warn(line, "unrecognised deadline %q", raw)
			}
		}

		out = append(out, ParsedJob{Line: line, Job: job})
	}
	return out, res, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if CleanText(c) != "" {
			return false
		}
	}
	return true
}

// Importer пишет разобранные вакансии через сервисы вакансий и компаний
type Importer struct {
	jobs      JobUpserter
	companies CompanyEnsurer
}

func New(jobs JobUpserter, companies CompanyEnsurer) *Importer {
	return &Importer{jobs: jobs, companies: companies}
}

// Import выполняется в одной транзакции. Dry run делает все записи и откатывается,
// поэтому счетчики inserted/updated совпадают с реальным прогоном.
func (im *Importer) Import(ctx context.Context, db *gorm.DB, rows [][]string, opts Options) (*Result, error) {
	parsed, res, err := Parse(rows, opts)
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		companyIDs := map[string]string{}
		for i := range parsed {
			p := &parsed[i]

			id, ok := companyIDs[p.Job.CompanyName]
			if !ok {
				company, err := im.companies.EnsureByName(ctx, tx, p.Job.CompanyName)
				if err != nil {
					return fmt.Errorf("row %d: ensure company: %w", p.Line, err)
				}
				id = company.ID
				companyIDs[p.Job.CompanyName] = id
			}
			p.Job.CompanyID = &id

			created, err := im.jobs.UpsertBySource(ctx, tx, &p.Job)
			if err != nil {
				return fmt.Errorf("row %d: upsert job: %w", p.Line, err)
			}
			if created {
				res.Inserted++
			} else {
				res.Updated++
			}
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}

	if !opts.DryRun {
		metrics.ImportRowsTotal.WithLabelValues("inserted").Add(float64(res.Inserted))
		metrics.ImportRowsTotal.WithLabelValues("updated").Add(float64(res.Updated))
		metrics.ImportRowsTotal.WithLabelValues("skipped").Add(float64(res.Skipped))
	}
	logger.CtxInfo(ctx, "Job import finished",
		"total", res.Total,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"shifted", res.Shifted,
		"warnings", len(res.Warnings),
		"dry_run", opts.DryRun,
	)
	return res, nil
}
