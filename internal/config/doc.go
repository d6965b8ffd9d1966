// Package config provides configuration parsing for Wayfinder projects.
//
// The configuration is stored in wayfinder.json at the project root.
// This package handles loading, saving, and validating configuration.
// Unknown fields are rejected at load time so typos surface as errors
// instead of silently dropped settings.
//
// # Configuration File Structure
//
//	{
//	  "name": "family-app",
//	  "manifest": "wayfinder.routes.json",
//	  "server": {
//	    "port": 8420,
//	    "host": "localhost",
//	    "allowedOrigins": ["https://app.example.com"],
//	    "pingInterval": "30s",
//	    "shutdownTimeout": "30s"
//	  },
//	  "resolve": {
//	    "redirectLimit": 5
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "telemetry": {
//	    "metrics": true,
//	    "tracing": false
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Address:", cfg.Address())
package config
