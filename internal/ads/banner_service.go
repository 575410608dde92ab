package ads

import (
	"sort"
	"time"

	"github.com/fnpulse/adserver/internal/models"
	"github.com/fnpulse/adserver/internal/storage"
	"go.uber.org/zap"
)

// BannerService provides CRUD, scheduling and delivery selection over
// banner creatives. It owns the audit log and the per-banner version
// history; every mutation is a single serialized read-modify-write of
// the inventory document.
type BannerService struct {
	inv       storage.InventoryStore
	analytics storage.AnalyticsStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewBannerService constructs a BannerService backed by the given stores.
func NewBannerService(inv storage.InventoryStore, analytics storage.AnalyticsStore, logger *zap.Logger) *BannerService {
	return &BannerService{inv: inv, analytics: analytics, logger: logger, now: time.Now}
}

// BannerFilter narrows List results. Zero fields match everything.
type BannerFilter struct {
	Status      models.BannerStatus
	ClientID    string
	CampaignID  string
	PlacementID string
}

// List returns banners matching the filter, highest priority first.
func (s *BannerService) List(filter BannerFilter) ([]models.Banner, error) {
	var out []models.Banner
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		for _, b := range doc.Banners {
			if filter.Status != "" && b.Status != filter.Status {
				continue
			}
			if filter.ClientID != "" && b.ClientID != filter.ClientID {
				continue
			}
			if filter.CampaignID != "" && b.CampaignID != filter.CampaignID {
				continue
			}
			if filter.PlacementID != "" && !contains(b.Placements, filter.PlacementID) {
				continue
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

// Get returns a banner by ID.
func (s *BannerService) Get(id string) (*models.Banner, error) {
	var found *models.Banner
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		if b := findBanner(doc, id); b != nil {
			cp := *b
			found = &cp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, notFoundf("banner %s not found", id)
	}
	return found, nil
}

// Create stores a new banner as provided, filling defaults for omitted
// fields. New banners start in draft unless an explicit status is given.
func (s *BannerService) Create(in models.Banner, userID string) (*models.Banner, error) {
	now := s.now().UTC()
	b := in
	b.ID = newID("ban")
	applyBannerDefaults(&b)
	b.Version = 1
	b.CreatedAt = now
	b.UpdatedAt = now
	b.CreatedBy = userID
	b.UpdatedBy = userID

	if err := b.Validate(); err != nil {
		return nil, validationf("invalid banner: %v", err)
	}

	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		doc.Banners = append(doc.Banners, b)
		appendAudit(doc, "banner_created", b.ID, userID, map[string]any{"name": b.Name}, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("banner created", zap.String("banner_id", b.ID), zap.String("name", b.Name))
	return &b, nil
}

// Update replaces a banner's mutable fields, snapshots the prior record
// into the version history and bumps the version counter. Identity and
// creation metadata are preserved.
func (s *BannerService) Update(id string, in models.Banner, userID string) (*models.Banner, error) {
	now := s.now().UTC()
	var updated models.Banner
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		cur := findBanner(doc, id)
		if cur == nil {
			return notFoundf("banner %s not found", id)
		}

		snapshot := models.BannerVersion{Version: cur.Version, Data: *cur, SavedAt: now}
		history := append([]models.BannerVersion{snapshot}, doc.Versions[id]...)
		if len(history) > storage.MaxBannerVersions {
			history = history[:storage.MaxBannerVersions]
		}
		doc.Versions[id] = history

		next := in
		next.ID = cur.ID
		next.CreatedAt = cur.CreatedAt
		next.CreatedBy = cur.CreatedBy
		next.Version = cur.Version + 1
		next.UpdatedAt = now
		next.UpdatedBy = userID
		applyBannerDefaults(&next)

		if err := next.Validate(); err != nil {
			return validationf("invalid banner: %v", err)
		}

		*cur = next
		updated = next
		appendAudit(doc, "banner_updated", id, userID, map[string]any{"name": next.Name}, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("banner updated", zap.String("banner_id", id), zap.Int("version", updated.Version))
	return &updated, nil
}

// Delete removes a banner and its version history.
func (s *BannerService) Delete(id, userID string) error {
	now := s.now().UTC()
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		b := findBanner(doc, id)
		if b == nil {
			return notFoundf("banner %s not found", id)
		}
		name := b.Name
		doc.Banners = removeBanner(doc.Banners, id)
		delete(doc.Versions, id)
		appendAudit(doc, "banner_deleted", id, userID, map[string]any{"name": name}, now)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("banner deleted", zap.String("banner_id", id))
	return nil
}

// Toggle flips a banner between active and paused. Any other status is
// rejected; draft and expired banners must go through Update or the
// status sweep.
func (s *BannerService) Toggle(id, userID string) (*models.Banner, error) {
	now := s.now().UTC()
	var toggled models.Banner
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		b := findBanner(doc, id)
		if b == nil {
			return notFoundf("banner %s not found", id)
		}
		switch b.Status {
		case models.BannerStatusActive:
			b.Status = models.BannerStatusPaused
		case models.BannerStatusPaused:
			b.Status = models.BannerStatusActive
		default:
			return validationf("cannot toggle banner in status %q", b.Status)
		}
		b.UpdatedAt = now
		b.UpdatedBy = userID
		toggled = *b
		appendAudit(doc, "banner_toggled", id, userID, map[string]any{"status": string(b.Status)}, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &toggled, nil
}

// Duplicate clones a banner into a fresh draft with an empty internal ID
// and reset version history.
func (s *BannerService) Duplicate(id, userID string) (*models.Banner, error) {
	src, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	cp := *src
	cp.Name = src.Name + " (Copy)"
	cp.Status = models.BannerStatusDraft
	cp.InternalID = ""
	return s.Create(cp, userID)
}

// SweepStatuses advances scheduled banners whose start date has passed
// to active and expires active banners past their end date. It returns
// the number of banners transitioned.
func (s *BannerService) SweepStatuses() (int, error) {
	now := s.now().UTC()
	changed := 0
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		for i := range doc.Banners {
			b := &doc.Banners[i]
			if b.Status == models.BannerStatusScheduled && b.StartDate != nil && !b.StartDate.After(now) {
				b.Status = models.BannerStatusActive
				b.UpdatedAt = now
				changed++
			}
			if b.Status == models.BannerStatusActive && b.EndDate != nil && b.EndDate.Before(now) {
				b.Status = models.BannerStatusExpired
				b.UpdatedAt = now
				changed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.logger.Info("banner status sweep", zap.Int("transitioned", changed))
	}
	return changed, nil
}

// StatsSummary counts banners by status plus inventory totals.
type StatsSummary struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Paused       int `json:"paused"`
	Draft        int `json:"draft"`
	Expired      int `json:"expired"`
	Scheduled    int `json:"scheduled"`
	ExpiringSoon int `json:"expiringSoon"`
	Clients      int `json:"clients"`
	Placements   int `json:"placements"`
}

// Stats summarizes the banner inventory. ExpiringSoon counts banners
// whose end date falls within the next 7 days.
func (s *BannerService) Stats() (*StatsSummary, error) {
	now := s.now().UTC()
	weekOut := now.Add(7 * 24 * time.Hour)
	sum := &StatsSummary{}
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		sum.Total = len(doc.Banners)
		sum.Clients = len(doc.Clients)
		sum.Placements = len(doc.Placements)
		for _, b := range doc.Banners {
			switch b.Status {
			case models.BannerStatusActive:
				sum.Active++
			case models.BannerStatusPaused:
				sum.Paused++
			case models.BannerStatusDraft:
				sum.Draft++
			case models.BannerStatusExpired:
				sum.Expired++
			case models.BannerStatusScheduled:
				sum.Scheduled++
			}
			if b.EndDate != nil && b.EndDate.After(now) && !b.EndDate.After(weekOut) {
				sum.ExpiringSoon++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// Versions returns a banner's edit history, newest first.
func (s *BannerService) Versions(id string) ([]models.BannerVersion, error) {
	var out []models.BannerVersion
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		if findBanner(doc, id) == nil {
			return notFoundf("banner %s not found", id)
		}
		out = append(out, doc.Versions[id]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AuditFilter narrows AuditLog results.
type AuditFilter struct {
	EntityID string
	Action   string
	UserID   string
	Limit    int
}

// AuditLog returns audit entries, newest first.
func (s *BannerService) AuditLog(filter AuditFilter) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		for _, e := range doc.AuditLog {
			if filter.EntityID != "" && e.EntityID != filter.EntityID {
				continue
			}
			if filter.Action != "" && e.Action != filter.Action {
				continue
			}
			if filter.UserID != "" && e.UserID != filter.UserID {
				continue
			}
			out = append(out, e)
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Settings returns the site-wide delivery defaults.
func (s *BannerService) Settings() (*models.Settings, error) {
	var out models.Settings
	err := s.inv.View(func(doc *storage.InventoryDoc) error {
		out = doc.Settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSettings replaces the site-wide delivery defaults.
func (s *BannerService) UpdateSettings(in models.Settings) (*models.Settings, error) {
	if in.DefaultRotation != "" && !in.DefaultRotation.Valid() {
		return nil, validationf("unknown rotation %q", in.DefaultRotation)
	}
	if in.DefaultRotation == "" {
		in.DefaultRotation = models.RotationWeighted
	}
	if in.FrequencyCap <= 0 {
		in.FrequencyCap = 5
	}
	err := s.inv.Update(func(doc *storage.InventoryDoc) error {
		doc.Settings = in
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func applyBannerDefaults(b *models.Banner) {
	if b.Status == "" {
		b.Status = models.BannerStatusDraft
	}
	if b.Priority == 0 {
		b.Priority = 5
	}
	if b.CreativeType == "" {
		b.CreativeType = models.CreativeImage
	}
	if b.Size == "" {
		b.Size = "medium-rectangle"
	}
	if b.AltText == "" {
		b.AltText = "Advertisement"
	}
	if b.UTMSource == "" {
		b.UTMSource = "fnpulse"
	}
	if b.UTMMedium == "" {
		b.UTMMedium = "banner"
	}
	if len(b.PageTargeting) == 0 {
		b.PageTargeting = []string{"all"}
	}
	if b.DeviceTargeting == "" {
		b.DeviceTargeting = "all"
	}
	if b.Placements == nil {
		b.Placements = []string{}
	}
}

func findBanner(doc *storage.InventoryDoc, id string) *models.Banner {
	for i := range doc.Banners {
		if doc.Banners[i].ID == id {
			return &doc.Banners[i]
		}
	}
	return nil
}

func removeBanner(banners []models.Banner, id string) []models.Banner {
	out := banners[:0]
	for _, b := range banners {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}

func appendAudit(doc *storage.InventoryDoc, action, entityID, userID string, details map[string]any, now time.Time) {
	entry := models.AuditEntry{
		ID:        newID("log"),
		Action:    action,
		EntityID:  entityID,
		UserID:    userID,
		Details:   details,
		Timestamp: now,
	}
	doc.AuditLog = append([]models.AuditEntry{entry}, doc.AuditLog...)
	if len(doc.AuditLog) > storage.MaxAuditEntries {
		doc.AuditLog = doc.AuditLog[:storage.MaxAuditEntries]
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
