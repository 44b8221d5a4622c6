package activity

import "github.com/godbus/dbus/v5"

const (
	prepareForSleep = "org.freedesktop.login1.Manager.PrepareForSleep"

	screenSaverIface   = "org.freedesktop.ScreenSaver"
	screenSaverChanged = screenSaverIface + ".ActiveChanged"
)

// decodeSleep maps PrepareForSleep(true) to resigned and (false) to became active.
func decodeSleep(sig *dbus.Signal) (Signal, bool) {
	return decodeBoolSignal(sig, prepareForSleep)
}

// decodeScreenSaver maps ActiveChanged(true), the screen locking, to resigned.
func decodeScreenSaver(sig *dbus.Signal) (Signal, bool) {
	return decodeBoolSignal(sig, screenSaverChanged)
}

func decodeBoolSignal(sig *dbus.Signal, name string) (Signal, bool) {
	if sig == nil || sig.Name != name || len(sig.Body) == 0 {
		return 0, false
	}
	away, ok := sig.Body[0].(bool)
	if !ok {
		return 0, false
	}
	if away {
		return ResignedActive, true
	}
	return BecameActive, true
}
