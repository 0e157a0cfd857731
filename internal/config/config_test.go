package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/classpulse/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.RecommendThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.MaxAdjustDelta, convey.ShouldEqual, 1.0)
			convey.So(cfg.SkillLabels["66ab5734c92cc90278b759a2"], convey.ShouldEqual, "Detergents")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"relative upstream", func(c *config.Config) { c.UpstreamURL = "localhost" }},
			{"threshold above 1", func(c *config.Config) { c.RecommendThreshold = 1.2 }},
			{"zero delta bound", func(c *config.Config) { c.MaxAdjustDelta = 0 }},
			{"empty submit queue", func(c *config.Config) { c.QueueSize = 0 }},
		}
		for _, tc := range cases {
			convey.Convey("Then "+tc.name+" is rejected", func() {
				cfg := config.New(context.Background())
				tc.mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
