package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/flagx"
)

var knownFlags = []string{"-a", "-d", "-s", "-t", "-r", "-dir", "-e", "-budget", "-maxbytes", "-redis", "-u", "-p", "-b", "-g", "-s3", "-publish", "-log", "-trace"}

// parseFlags overlays config with command-line flags.
//
// Supported flags:
//
//	-a string      HTTP bind address (e.g. ":8080")
//	-d string      PostgreSQL DSN
//	-s string      JWT HMAC secret key
//	-t int         access token validity, minutes
//	-r int         refresh token validity, minutes
//	-dir string    challenges root directory
//	-e duration    challenge evaluation timeout
//	-budget int    script instruction budget
//	-maxbytes int  largest string a script may build
//	-redis string  Redis address for the scoreboard cache
//	-u, -p string  S3 root user / password
//	-b string      S3 bucket
//	-g string      S3 region
//	-s3 string     S3 base endpoint
//	-publish       upload attachments on load
//	-log string    log format: json, text, zap
//	-trace         print spans to stdout
//
// Only known flags are passed to the flag set (see flagx.FilterArgs), so
// -c/-config and flags of other components do not collide.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	access := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refresh := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.ChallengesDir, "dir", config.ChallengesDir, "challenges directory")
	fs.DurationVar(&config.EvalTimeout, "e", config.EvalTimeout, "challenge evaluation timeout")
	fs.IntVar(&config.ScriptInstructionBudget, "budget", config.ScriptInstructionBudget, "script instruction budget")
	fs.IntVar(&config.ScriptMaxBytes, "maxbytes", config.ScriptMaxBytes, "largest string a script may build")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "s3", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.S3PublishOnLoad, "publish", config.S3PublishOnLoad, "publish attachments on load")

	fs.StringVar(&config.LogFormat, "log", config.LogFormat, "log format (json, text, zap)")
	fs.BoolVar(&config.TraceStdout, "trace", config.TraceStdout, "print spans to stdout")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*access) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refresh) * time.Minute
}
