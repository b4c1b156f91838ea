package types

// Client -> Server, one JSON object per websocket text frame.
//
// Start:
//   variant: "classic" | "timed" | "survival" | "daily"
//   difficulty: "" | "Easy" | "Medium" | "Hard"
//
// Input:
//   text: string // the guess box as typed; suggestions follow it
//
// Focus: {}
//
// Select:
//   text: string // a suggested name
//
// Submit: {}
//
// Advance: {} // skip the rest of the feedback pause
//
// Restart: {}

// Server -> Client
// StateSnapshot:
//   version: number
//   state: Snapshot
//
// Error:
//   error: string
