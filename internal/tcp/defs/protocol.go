package defs

import "time"

// Protocol constants
const (
	MagicNumber uint16 = 0xD1CE

	// Worker -> node manager message types
	MsgWorkerRegister byte = 0x01
	MsgActorRegister  byte = 0x02
	MsgTaskBlocked    byte = 0x03
	MsgTaskUnblocked  byte = 0x04
	MsgTaskDone       byte = 0x05
	MsgActiveObjects  byte = 0x06
	MsgError          byte = 0x07
	MsgSignal         byte = 0x08

	// Node manager -> worker message types
	MsgAssignTask      byte = 0x10
	MsgArgWaitComplete byte = 0x11

	// Configuration constants
	InitialRegistrationTimeout = 30 * time.Second
	ConnectionRetryDelay       = 1 * time.Second
)
