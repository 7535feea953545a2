package services

// SetSettleHook installs a stage hook on s for fault injection.
func SetSettleHook(s *SettlementService, fn func(stage string) error) { s.hook = fn }
