package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/flagx"
	"github.com/dmitrijs2005/flagkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "1m" and integer nanoseconds are accepted.
// Pointer fields distinguish "absent" from zero values.
type JsonConfig struct {
	EndpointAddrHTTP             string          `json:"endpoint_addr_http"`
	DatabaseDSN                  string          `json:"database_dsn"`
	SecretKey                    string          `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	ChallengesDir                string          `json:"challenges_dir"`
	EvalTimeout                  *timex.Duration `json:"eval_timeout"`
	ScriptInstructionBudget      *int            `json:"script_instruction_budget"`
	ScriptMaxBytes               *int            `json:"script_max_bytes"`
	RedisAddr                    string          `json:"redis_addr"`
	S3RootUser                   string          `json:"s3_root_user"`
	S3RootPassword               string          `json:"s3_root_password"`
	S3Bucket                     string          `json:"s3_bucket"`
	S3Region                     string          `json:"s3_region"`
	S3BaseEndpoint               string          `json:"s3_base_endpoint"`
	S3PublishOnLoad              *bool           `json:"s3_publish_on_load"`
	LogFormat                    string          `json:"log_format"`
	TraceStdout                  *bool           `json:"trace_stdout"`
}

// parseJson loads the file named by -c/-config in args, if any, and copies
// every field present in it into config. It panics when the file cannot be
// read or decoded.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setString(&config.ChallengesDir, c.ChallengesDir)
	setDuration(&config.EvalTimeout, c.EvalTimeout)
	if c.ScriptInstructionBudget != nil {
		config.ScriptInstructionBudget = *c.ScriptInstructionBudget
	}
	if c.ScriptMaxBytes != nil {
		config.ScriptMaxBytes = *c.ScriptMaxBytes
	}
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3PublishOnLoad != nil {
		config.S3PublishOnLoad = *c.S3PublishOnLoad
	}
	setString(&config.LogFormat, c.LogFormat)
	if c.TraceStdout != nil {
		config.TraceStdout = *c.TraceStdout
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
