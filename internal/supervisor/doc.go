// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

/*
Package supervisor runs the long-lived parts of the scoring server under a
suture v4 supervisor tree.

	RootSupervisor ("loginwatch")
	├── DataSupervisor ("data-layer")
	│   └── CacheGCService (when a persistent geolocation cache is configured)
	├── MessagingSupervisor ("messaging-layer")
	│   └── alerting.LogSink (when alerting is enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's backoff; supervisor events are
logged through sutureslog into the zerolog pipeline. Canceling the context
passed to ServeBackground shuts the tree down, waiting at most
ShutdownTimeout for each service.

The service wrappers live in the services subpackage.
*/
package supervisor
