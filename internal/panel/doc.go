// Package panel provides the connection coordinator for an Aritech ATS
// alarm panel.
//
// The coordinator owns a single long-lived panel session, converts the
// panel's push-event stream into a consistent in-memory snapshot, fans out
// change notifications to per-entity and global listeners, and recovers
// from connection loss with bounded exponential backoff.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────┐
//	│                         Coordinator                            │
//	│                                                                │
//	│  ┌───────────────┐   ┌───────────────┐   ┌──────────────────┐  │
//	│  │  Coordinator  │   │     Store     │   │    listeners     │  │
//	│  │(coordinator.go│──▶│   (store.go)  │   │  (listeners.go)  │  │
//	│  │ reconnect.go) │   │               │   │                  │  │
//	│  │ • lifecycle   │   │ • descriptors │   │ • (kind,number)→ │  │
//	│  │ • event apply │   │ • state recs  │   │   callback list  │  │
//	│  │ • commands    │   │ • panel info  │   │ • global list    │  │
//	│  │ • backoff     │   │               │   │ • uuid tokens    │  │
//	│  └──────┬────────┘   └───────────────┘   └──────────────────┘  │
//	└─────────│──────────────────────────────────────────────────────┘
//	          │ ats.Client
//	          ▼
//	┌──────────────────────┐       consumers: internal/bridge (MQTT),
//	│  panel session       │                  internal/api (REST/WS)
//	│  (wire driver or     │
//	│   ats.Simulator)     │
//	└──────────────────────┘
//
// # Lifecycle
//
//	Disconnected → Connecting → Initializing → Connected
//	     ▲                                        │ connection lost
//	     │ Disconnect()          ErrorDetected ◀──┘
//	     │                            │
//	     └──────── Reconnecting ◀─────┘  (backoff 5,10,20,40,60,120s)
//
// Connect failures are returned to the caller and never retried from that
// path; only a connection lost after a successful connect drives the
// autonomous reconnection loop. The loop never gives up — after the fast
// schedule is exhausted it keeps trying at the maximum delay until the
// panel returns or the coordinator is closed.
//
// # Event ordering
//
// Push events are applied to the store and fanned out synchronously, one at
// a time: the store commit always happens before listener fan-out, and a
// failing listener can never roll it back or starve later listeners.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use.
package panel
