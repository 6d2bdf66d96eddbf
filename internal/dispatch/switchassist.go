package dispatch

import "github.com/fuzzpoint/psoserver/internal/lobby"

// SwitchEnableSubcommand and SwitchStepSubcommand are the two
// game-event sub-command bytes the switch-assist cheat watches (spec.md
// §4.4 "Switch assist cheat"). Concrete byte values follow the
// convention used across the 0x60 sub-command space for door/switch
// interaction.
const (
	SwitchEnableSubcommand byte = 0x05
	SwitchStepSubcommand   byte = 0x06
)

// HandleSwitchEnable records clientSlot's switch-enable event in the
// assist memory and returns nothing (the event itself is always forwarded
// to the lobby by the caller).
func HandleSwitchEnable(switches *lobby.SwitchState, clientSlot int, key lobby.SwitchKey) {
	switches.SetEnabled(clientSlot, key)
}

// HandleSwitchStep is called when clientSlot steps on switchKey. When
// assist is enabled and clientSlot previously enabled a *different*
// switch, it returns that prior switch so the caller can replay it to
// every player in the lobby in addition to forwarding switchKey itself
// (spec.md §4.4 "Switch assist cheat").
func HandleSwitchStep(switches *lobby.SwitchState, assistEnabled bool, clientSlot int, switchKey lobby.SwitchKey) (replay lobby.SwitchKey, shouldReplay bool) {
	if !assistEnabled {
		return lobby.SwitchKey{}, false
	}
	prior, ok := switches.LastEnabled(clientSlot)
	if !ok || prior == switchKey {
		return lobby.SwitchKey{}, false
	}
	return prior, true
}
