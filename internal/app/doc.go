// Package app provides the application composition layer for the
// progression engine.
//
// # Architecture Role
//
// The app package sits above the domain and storage layers and composes
// them into a running application. Business rules live in the service
// packages; this package only wires them together and manages lifecycle.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── progression/    # XP arithmetic, stages, ledger records
//	│   ├── account/        # User profiles
//	│   ├── challenge/      # Challenge board models
//	│   └── reward/         # Redemption catalog models
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces
//	│   ├── memory/         # In-memory implementation for tests and dev
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Business logic per concern
//	├── httpapi/            # REST handlers, partner webhook, websocket
//	├── events/             # In-process progression event hub
//	├── system/             # Lifecycle manager
//	└── metrics/            # Prometheus collectors
package app
