package liquidation

import (
	"sync"

	"stablevault/internal/domain"
)

// ConfigStore guards the process-wide liquidation policy. Admin mutations
// take effect on the next attempt; reads never block each other.
type ConfigStore struct {
	mu     sync.RWMutex
	config domain.LiquidationConfig
	admins map[string]struct{}
}

func NewConfigStore(initial domain.LiquidationConfig, admins []string) *ConfigStore {
	adminSet := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		adminSet[a] = struct{}{}
	}
	return &ConfigStore{config: initial.Clone(), admins: adminSet}
}

func (s *ConfigStore) Config() domain.LiquidationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

func (s *ConfigStore) IsAdmin(account string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[account]
	return ok
}

// Update replaces the whole config. Caller must be an admin.
func (s *ConfigStore) Update(caller string, cfg domain.LiquidationConfig) error {
	if !s.IsAdmin(caller) {
		return domain.ErrUnauthorizedAdmin
	}
	s.mu.Lock()
	s.config = cfg.Clone()
	s.mu.Unlock()
	return nil
}

// AddLiquidator whitelists one more liquidator account. Caller must be an
// admin. Adding an already whitelisted account is a no-op.
func (s *ConfigStore) AddLiquidator(caller, account string) error {
	if !s.IsAdmin(caller) {
		return domain.ErrUnauthorizedAdmin
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.HasLiquidator(account) {
		return nil
	}
	s.config.Liquidators = append(s.config.Liquidators, account)
	return nil
}
