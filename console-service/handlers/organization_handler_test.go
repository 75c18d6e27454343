package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railzway-console/shared/config"
	"railzway-console/shared/database/models"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Inc":        "acme-inc",
		"  My  Org!  ":    "my-org",
		"UPPER":           "upper",
		"already-a-slug":  "already-a-slug",
		"trailing---":     "trailing",
		"!!!":             "",
		"42 degrees east": "42-degrees-east",
	}

	for input, want := range cases {
		assert.Equal(t, want, slugify(input), "input %q", input)
	}
}

func TestNormalizeOrgSlug(t *testing.T) {
	root := "railzway.com"

	t.Run("bare subdomain", func(t *testing.T) {
		slug, err := normalizeOrgSlug("acme", root)
		require.NoError(t, err)
		assert.Equal(t, "acme", slug)
	})

	t.Run("uppercase and whitespace", func(t *testing.T) {
		slug, err := normalizeOrgSlug("  ACME-Team ", root)
		require.NoError(t, err)
		assert.Equal(t, "acme-team", slug)
	})

	t.Run("full host under root domain", func(t *testing.T) {
		slug, err := normalizeOrgSlug("acme.railzway.com", root)
		require.NoError(t, err)
		assert.Equal(t, "acme", slug)
	})

	t.Run("wrong domain rejected", func(t *testing.T) {
		_, err := normalizeOrgSlug("acme.other.com", root)
		assert.Error(t, err)
	})

	t.Run("nested subdomain rejected", func(t *testing.T) {
		_, err := normalizeOrgSlug("a.b.railzway.com", root)
		assert.Error(t, err)
	})

	t.Run("leading hyphen rejected", func(t *testing.T) {
		_, err := normalizeOrgSlug("-acme", root)
		assert.Error(t, err)
	})

	t.Run("trailing hyphen rejected", func(t *testing.T) {
		_, err := normalizeOrgSlug("acme-", root)
		assert.Error(t, err)
	})

	t.Run("empty rejected", func(t *testing.T) {
		_, err := normalizeOrgSlug("   ", root)
		assert.Error(t, err)
	})

	t.Run("dots without configured root rejected", func(t *testing.T) {
		_, err := normalizeOrgSlug("acme.railzway.com", "")
		assert.Error(t, err)
	})

	t.Run("single char allowed", func(t *testing.T) {
		slug, err := normalizeOrgSlug("a", root)
		require.NoError(t, err)
		assert.Equal(t, "a", slug)
	})

	t.Run("over 63 chars rejected", func(t *testing.T) {
		long := make([]byte, 64)
		for i := range long {
			long[i] = 'a'
		}
		_, err := normalizeOrgSlug(string(long), root)
		assert.Error(t, err)
	})
}

func TestBuildLaunchURL(t *testing.T) {
	t.Run("explicit scheme", func(t *testing.T) {
		cfg := &config.Config{AppRootDomain: "railzway.com", AppRootScheme: "https"}
		assert.Equal(t, "https://acme.railzway.com/login/railzway_com", buildLaunchURL(cfg, "acme"))
	})

	t.Run("production defaults to https", func(t *testing.T) {
		cfg := &config.Config{AppRootDomain: "railzway.com", Environment: "production"}
		assert.Equal(t, "https://acme.railzway.com/login/railzway_com", buildLaunchURL(cfg, "acme"))
	})

	t.Run("development defaults to http", func(t *testing.T) {
		cfg := &config.Config{AppRootDomain: "railzway.local", Environment: "development"}
		assert.Equal(t, "http://acme.railzway.local/login/railzway_com", buildLaunchURL(cfg, "acme"))
	})

	t.Run("missing root domain uses fallback", func(t *testing.T) {
		cfg := &config.Config{FallbackLaunchURL: "http://localhost:5173/login"}
		assert.Equal(t, "http://localhost:5173/login", buildLaunchURL(cfg, "acme"))
	})

	t.Run("missing slug uses fallback", func(t *testing.T) {
		cfg := &config.Config{AppRootDomain: "railzway.com", FallbackLaunchURL: "http://localhost:5173/login"}
		assert.Equal(t, "http://localhost:5173/login", buildLaunchURL(cfg, " "))
	})
}

func TestTierForPlan(t *testing.T) {
	cases := map[string]string{
		"Free Trial":  models.TierFreeTrial,
		"free-trial":  models.TierFreeTrial,
		"Starter":     models.TierStarter,
		"Pro":         models.TierPro,
		"Production":  models.TierPro,
		"Team":        models.TierTeam,
		"Performance": models.TierTeam,
		"Enterprise":  models.TierEnterprise,
		"":            models.TierFreeTrial,
		"mystery":     models.TierFreeTrial,
	}

	for plan, want := range cases {
		assert.Equal(t, want, tierForPlan(plan), "plan %q", plan)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("", "a", "b"))
	assert.Equal(t, "x", firstNonEmpty("x"))
	assert.Empty(t, firstNonEmpty("", ""))
}
