// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package cfgstruct

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	var config struct {
		APIPort        string `help:"port to listen on" default:"8080"`
		PublicFilesURL string `help:"public base URL" default:""`
		Redis          struct {
			Addr         string `help:"redis address" default:"localhost:6379"`
			PoolSize     int    `help:"pool size" default:"100"`
			MinIdleConns int    `help:"min idle conns" default:"10"`
		}
		S3 struct {
			UseSSL bool `help:"use TLS" default:"false"`
		}
		GatewayS3AccessKeyID string        `help:"access key" default:""`
		Window               time.Duration `help:"expiry window" default:"1h"`
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Bind(flags, &config)

	require.NoError(t, flags.Parse([]string{
		"--redis.pool-size=5",
		"--s3.use-ssl=true",
	}))

	assert.Equal(t, "8080", config.APIPort)
	assert.Equal(t, "localhost:6379", config.Redis.Addr)
	assert.Equal(t, 5, config.Redis.PoolSize)
	assert.Equal(t, 10, config.Redis.MinIdleConns)
	assert.True(t, config.S3.UseSSL)
	assert.Equal(t, time.Hour, config.Window)

	for _, name := range []string{
		"api-port",
		"public-files-url",
		"redis.addr",
		"redis.min-idle-conns",
		"gateway-s3-access-key-id",
	} {
		assert.NotNil(t, flags.Lookup(name), "missing flag %q", name)
	}
}

func TestHyphenate(t *testing.T) {
	cases := map[string]string{
		"APIPort":              "api-port",
		"PublicFilesURL":       "public-files-url",
		"GatewayS3AccessKeyID": "gateway-s3-access-key-id",
		"DSN":                  "dsn",
		"ValidateImageStart":   "validate-image-start",
		"IndexListing":         "index-listing",
	}
	for in, want := range cases {
		assert.Equal(t, want, hyphenate(in), "hyphenate(%q)", in)
	}
}
