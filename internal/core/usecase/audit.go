package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/core/ports"
)

// Auditor computes filter coverage over a set of guides.
type Auditor struct {
	cfg        domain.FilterConfig
	classifier *Classifier
	now        func() time.Time
}

func NewAuditor(cfg domain.FilterConfig, classifier *Classifier) *Auditor {
	if classifier == nil {
		classifier = NewClassifier(cfg)
	}
	return &Auditor{
		cfg:        cfg,
		classifier: classifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Audit counts, for every configured filter value, the approved guides that
// satisfy it. The report is always computed from the guides passed in.
func (a *Auditor) Audit(guides []domain.Guide) domain.CoverageReport {
	type bucketKey struct{ dimension, value string }
	members := make(map[bucketKey]map[string]struct{})
	uncategorized := make(map[string]map[string]struct{})

	scanned := 0
	for _, g := range guides {
		if !g.IsApproved() {
			continue
		}
		scanned++
		cls := a.classifier.Classify(g)
		for _, dim := range a.cfg.Dimensions {
			if !dim.InScope(cls.Category) {
				continue
			}
			values := cls.Dimensions[dim.Name]
			if len(values) == 0 {
				if uncategorized[dim.Name] == nil {
					uncategorized[dim.Name] = make(map[string]struct{})
				}
				uncategorized[dim.Name][g.Identity()] = struct{}{}
				continue
			}
			for _, v := range values {
				key := bucketKey{dimension: dim.Name, value: v}
				if members[key] == nil {
					members[key] = make(map[string]struct{})
				}
				members[key][g.Identity()] = struct{}{}
			}
		}
	}

	report := domain.CoverageReport{
		GeneratedAt:   a.now(),
		GuidesScanned: scanned,
		Buckets:       make([]domain.BucketCoverage, 0),
		Uncategorized: make(map[string][]string, len(uncategorized)),
	}
	for _, dim := range a.cfg.Dimensions {
		for _, opt := range dim.Options {
			ids := sortedKeys(members[bucketKey{dimension: dim.Name, value: opt.ID}])
			report.Buckets = append(report.Buckets, domain.BucketCoverage{
				Dimension: dim.Name,
				Value:     opt.ID,
				Label:     opt.DisplayLabel(),
				Scope:     dim.Scope,
				Count:     len(ids),
				GuideIDs:  ids,
				State:     domain.StateForCount(len(ids)),
			})
		}
	}
	for dim, ids := range uncategorized {
		report.Uncategorized[dim] = sortedKeys(ids)
	}
	return report
}

// CoverageService audits the guides currently approved in the store.
type CoverageService struct {
	store    ports.GuideStore
	auditor  *Auditor
	recorder ports.RunRecorder
}

func NewCoverageService(store ports.GuideStore, auditor *Auditor, recorder ports.RunRecorder) *CoverageService {
	return &CoverageService{
		store:    store,
		auditor:  auditor,
		recorder: recorder,
	}
}

func (s *CoverageService) Audit(ctx context.Context) (domain.CoverageReport, error) {
	_, report, err := s.Snapshot(ctx)
	return report, err
}

// Snapshot returns the approved guides together with their coverage report.
func (s *CoverageService) Snapshot(ctx context.Context) ([]domain.Guide, domain.CoverageReport, error) {
	guides, err := s.LoadApproved(ctx)
	if err != nil {
		return nil, domain.CoverageReport{}, err
	}
	report := s.auditor.Audit(guides)
	if s.recorder != nil {
		s.recorder.ObserveCoverage(report)
	}
	return guides, report, nil
}

func (s *CoverageService) Classifier() *Classifier {
	return s.auditor.classifier
}

// LoadApproved fetches approved guides ordered by slug.
func (s *CoverageService) LoadApproved(ctx context.Context) ([]domain.Guide, error) {
	guides, err := s.store.Select(ctx, domain.GuideQuery{Status: domain.StatusApproved})
	if err != nil {
		return nil, fmt.Errorf("select approved guides: %w", err)
	}
	sort.SliceStable(guides, func(i, j int) bool {
		if guides[i].Slug != guides[j].Slug {
			return guides[i].Slug < guides[j].Slug
		}
		return guides[i].ID < guides[j].ID
	})
	return guides, nil
}
