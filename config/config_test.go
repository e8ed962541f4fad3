package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("API_ACCESS_KEY", "gate-key")
	t.Setenv("ERP_BASE_URL", "http://erp.local/")
	t.Setenv("ERP_DB", "erp_prod")
	t.Setenv("ERP_API_KEY", "system-key")
	t.Setenv("ERP_SYSTEM_USER_ID", "2")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("MAIL_FROM", "noreply@example.com")
}

func TestLoad_ResolvesErpTimeoutOnce(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ERP_TIMEOUT_SECONDS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ErpTimeout != 7*time.Second {
		t.Fatalf("ErpTimeout %v, want 7s", cfg.ErpTimeout)
	}
}

func TestLoad_ErpTimeoutDefault(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ERP_TIMEOUT_SECONDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ErpTimeout != 30*time.Second {
		t.Fatalf("ErpTimeout %v, want 30s", cfg.ErpTimeout)
	}
}

func TestLoad_MissingSystemUserIsFatal(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ERP_SYSTEM_USER_ID", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error without ERP_SYSTEM_USER_ID")
	}
}
