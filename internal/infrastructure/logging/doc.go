// Package logging configures the bridge's structured logger on top of
// log/slog.
//
// One Logger is built at startup from the logging section of config.yaml
// and handed to every component; each record carries the service name and
// build version so mixed log streams stay attributable.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log secrets. The panel PIN and session key in particular must not
// appear in log output.
package logging
