// Package config resolves settings for the flagkeeper player CLI.
//
// Values are layered, each step overriding the previous one:
// built-in defaults, a JSON file named by -c/-config, FLAGKEEPER_*
// environment variables, then the flags below.
//
//	-a string   API base URL (FLAGKEEPER_SERVER_URL)
//	-t int      request timeout in seconds (FLAGKEEPER_REQUEST_TIMEOUT)
//	-i int      online check interval in seconds (FLAGKEEPER_ONLINE_CHECK_INTERVAL)
//
// Durations in the JSON file accept "3s" style strings or integer
// nanoseconds:
//
//	{"server_url": "http://127.0.0.1:8080", "request_timeout": "10s", "online_check_interval": "3s"}
package config
