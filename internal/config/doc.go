// Package config loads pulse.json / pulse.yaml configuration files.
//
// A configuration file is optional. Missing sections keep their defaults:
//
//	log:
//	  level: debug
//	  format: json
//	metrics:
//	  enabled: true
//	  namespace: pulse
//	inspector:
//	  addr: 127.0.0.1:7070
//	effects:
//	  overlap: latest
//	  queueLimit: 16
package config
