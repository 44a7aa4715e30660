package collector

import (
	"context"
	"strings"
	"time"

	"f0oster/adwarden/activedirectory"
	"f0oster/adwarden/database"
	"f0oster/adwarden/metrics"

	"go.uber.org/zap"
)

// computerActiveWindow is the trailing logon window that marks a computer as
// active in the mirror.
const computerActiveWindow = 90 * 24 * time.Hour

// DefaultDepartment is used when neither the crawl, nor the user's own
// memberships, nor the manual mapping yield a department.
const DefaultDepartment = "Geral"

// leadershipKeywords mark a crawl path as the preferred department source.
var leadershipKeywords = []string{"gestores", "lideranca", "coordenacao", "diretoria"}

// syncDirectory is the slice of the directory adapter the sync passes need.
type syncDirectory interface {
	groupDirectory
	FetchUsers() ([]activedirectory.UserEntry, error)
	FetchComputers() ([]activedirectory.ComputerEntry, error)
	FetchDisabledUsers(container string) ([]activedirectory.DisabledEntry, error)
}

// Store is the mirror surface the synchronizer writes through.
type Store interface {
	UpsertUser(ctx context.Context, record database.UserRecord) error
	UpsertComputer(ctx context.Context, record database.ComputerRecord) error
	UpsertDisabledUser(ctx context.Context, record database.DisabledUserRecord) error
	PruneUsers(ctx context.Context, seen []string) (int64, error)
	PruneComputers(ctx context.Context, seen []string) (int64, error)
}

// Service orchestrates the three sync passes: crawl, per-user classification
// and scoring, computer activity, and the disabled-container scan. Each pass
// is idempotent and safe to re-run.
type Service struct {
	directory         syncDirectory
	store             Store
	crawler           *Crawler
	rootGroup         string
	disabledContainer string
	manualDepartments []string
	logger            *zap.Logger
}

func NewService(
	directory syncDirectory,
	store Store,
	crawler *Crawler,
	rootGroup string,
	disabledContainer string,
	manualDepartments []string,
	logger *zap.Logger,
) *Service {
	return &Service{
		directory:         directory,
		store:             store,
		crawler:           crawler,
		rootGroup:         rootGroup,
		disabledContainer: disabledContainer,
		manualDepartments: manualDepartments,
		logger:            logger,
	}
}

// SyncUsers runs the crawl once, then classifies, scores and upserts every
// enabled user. One user failing to persist does not stop the pass.
func (s *Service) SyncUsers(ctx context.Context) error {
	started := time.Now()
	s.logger.Info("user sync pass starting", zap.String("root_group", s.rootGroup))

	index, err := s.crawler.Crawl(ctx, s.rootGroup)
	if err != nil {
		return err
	}

	users, err := s.directory.FetchUsers()
	if err != nil {
		return err
	}

	seen := make([]string, 0, len(users))
	synced, failed := 0, 0
	for _, user := range users {
		if user.AccountName == "" {
			continue
		}
		record := s.buildUserRecord(user, index)
		if err := s.store.UpsertUser(ctx, record); err != nil {
			failed++
			metrics.SyncFailures.WithLabelValues("users").Inc()
			s.logger.Error("failed to persist user",
				zap.String("username", record.Username), zap.Error(err))
			continue
		}
		seen = append(seen, record.Username)
		synced++
	}

	pruned, err := s.store.PruneUsers(ctx, seen)
	if err != nil {
		s.logger.Error("failed to prune stale users", zap.Error(err))
	}

	metrics.EntitiesSynced.WithLabelValues("users").Add(float64(synced))
	metrics.PassDuration.WithLabelValues("users").Observe(time.Since(started).Seconds())
	s.logger.Info("user sync pass finished",
		zap.Int("synced", synced),
		zap.Int("failed", failed),
		zap.Int64("pruned", pruned),
		zap.Duration("took", time.Since(started)))
	return nil
}

// SyncComputers scans every computer object and recomputes the 90-day
// activity window.
func (s *Service) SyncComputers(ctx context.Context) error {
	started := time.Now()
	s.logger.Info("computer sync pass starting")

	computers, err := s.directory.FetchComputers()
	if err != nil {
		return err
	}

	now := time.Now()
	seen := make([]string, 0, len(computers))
	synced, failed := 0, 0
	for _, computer := range computers {
		if computer.Hostname == "" {
			continue
		}
		record := database.ComputerRecord{
			Hostname:  computer.Hostname,
			OSName:    computer.OSName,
			OSVersion: computer.OSVersion,
			CreatedAt: computer.WhenCreated,
			LastLogon: computer.LastLogon,
			IsActive:  computer.LastLogon != nil && now.Sub(*computer.LastLogon) <= computerActiveWindow,
		}
		if err := s.store.UpsertComputer(ctx, record); err != nil {
			failed++
			metrics.SyncFailures.WithLabelValues("computers").Inc()
			s.logger.Error("failed to persist computer",
				zap.String("hostname", record.Hostname), zap.Error(err))
			continue
		}
		seen = append(seen, record.Hostname)
		synced++
	}

	pruned, err := s.store.PruneComputers(ctx, seen)
	if err != nil {
		s.logger.Error("failed to prune stale computers", zap.Error(err))
	}

	metrics.EntitiesSynced.WithLabelValues("computers").Add(float64(synced))
	metrics.PassDuration.WithLabelValues("computers").Observe(time.Since(started).Seconds())
	s.logger.Info("computer sync pass finished",
		zap.Int("synced", synced),
		zap.Int("failed", failed),
		zap.Int64("pruned", pruned),
		zap.Duration("took", time.Since(started)))
	return nil
}

// SyncDisabledUsers scans the disabled container, independent of the
// enabled-user pass.
func (s *Service) SyncDisabledUsers(ctx context.Context) error {
	started := time.Now()
	s.logger.Info("disabled-user sync pass starting",
		zap.String("container", s.disabledContainer))

	disabled, err := s.directory.FetchDisabledUsers(s.disabledContainer)
	if err != nil {
		return err
	}

	synced, failed := 0, 0
	for _, entry := range disabled {
		if entry.AccountName == "" {
			continue
		}
		record := database.DisabledUserRecord{
			Username:    entry.AccountName,
			DisplayName: entry.DisplayName,
			Description: entry.Description,
			Department:  entry.Department,
			WhenChanged: entry.WhenChanged,
		}
		if err := s.store.UpsertDisabledUser(ctx, record); err != nil {
			failed++
			metrics.SyncFailures.WithLabelValues("disabled").Inc()
			s.logger.Error("failed to persist disabled user",
				zap.String("username", record.Username), zap.Error(err))
			continue
		}
		synced++
	}

	metrics.EntitiesSynced.WithLabelValues("disabled").Add(float64(synced))
	metrics.PassDuration.WithLabelValues("disabled").Observe(time.Since(started).Seconds())
	s.logger.Info("disabled-user sync pass finished",
		zap.Int("synced", synced),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(started)))
	return nil
}

func (s *Service) buildUserRecord(user activedirectory.UserEntry, index MembershipIndex) database.UserRecord {
	groupNames := memberOfNames(user.MemberOf)
	crawlPaths := index[user.AccountName]

	classifyNames := crawlPaths
	if len(classifyNames) == 0 {
		classifyNames = groupNames
	}

	score, factors := Score(RiskInputs{
		PwdNeverExpires: user.PwdNeverExpires,
		PwdLastSet:      user.PwdLastSet,
		Enabled:         user.Enabled,
		LastLogon:       user.LastLogon,
		IsAdmin:         user.IsAdmin,
		BadPwdCount:     user.BadPwdCount,
		HasManager:      user.ManagerDN != "",
	})

	return database.UserRecord{
		Username:        user.AccountName,
		DisplayName:     user.DisplayName,
		Email:           user.Mail,
		StartDate:       user.WhenCreated,
		IsEnabled:       user.Enabled,
		LastLogon:       user.LastLogon,
		Team:            Classify(classifyNames),
		JobTitle:        user.Title,
		Department:      s.resolveDepartment(crawlPaths, groupNames),
		Seniority:       user.Seniority,
		Manager:         activedirectory.FirstDNComponentValue(user.ManagerDN),
		PwdLastSet:      user.PwdLastSet,
		BadPwdCount:     user.BadPwdCount,
		IsAdmin:         user.IsAdmin,
		PwdNeverExpires: user.PwdNeverExpires,
		RiskScore:       score,
		RiskFactors:     factors,
	}
}

// resolveDepartment applies the fixed precedence: a leadership-flavored
// crawl path, else the last (most specific) crawl path, else a manual
// mapping hit on the user's own memberships, else the default.
func (s *Service) resolveDepartment(crawlPaths []string, ownGroups []string) string {
	if len(crawlPaths) > 0 {
		for _, path := range crawlPaths {
			lower := strings.ToLower(path)
			for _, keyword := range leadershipKeywords {
				if strings.Contains(lower, keyword) {
					return path
				}
			}
		}
		return crawlPaths[len(crawlPaths)-1]
	}

	for _, group := range ownGroups {
		for _, manual := range s.manualDepartments {
			if strings.EqualFold(group, manual) {
				return manual
			}
		}
	}

	return DefaultDepartment
}

func memberOfNames(memberOf []string) []string {
	names := make([]string, 0, len(memberOf))
	for _, dn := range memberOf {
		names = append(names, activedirectory.FirstDNComponentValue(dn))
	}
	return names
}
