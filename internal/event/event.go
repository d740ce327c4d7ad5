// Package event defines the outbound event vocabulary of the broadcast
// stream. Each event is a self-contained JSON record; the Type field is the
// discriminator consumers switch on. Values are immutable once constructed.
package event

// Event type discriminators as they appear on the wire.
const (
	TypeTuioObject         = "tuio_obj"
	TypeWheelOpen          = "wheel_open"
	TypeWheelHover         = "wheel_hover"
	TypeWheelSelectConfirm = "wheel_select_confirm"
	TypeNurseWheelOpen     = "nurse_wheel_open"
	TypeNurseWheelHover    = "nurse_wheel_hover"
	TypeNurseWheelSelect   = "nurse_wheel_select_confirm"
	TypeNurseEditMedSelect = "nurse_edit_med_select"
	TypeBackPressed        = "back_pressed"
	TypeGestureModeToggled = "gesture_mode_toggled"
	TypeGestureTimeUpdate  = "gesture_time_update"
	TypeGestureTimeFinal   = "gesture_time_final"
	TypeGestureSwipe       = "gesture_swipe"
)

// MarkerPatient tags patient-wheel events so consumers can distinguish the
// two wheel surfaces.
const MarkerPatient = "patient"

// ObjectPayload is the canonical tracked-object record republished verbatim
// with every intake event.
type ObjectPayload struct {
	Event     string  `json:"event"`
	SymbolID  int     `json:"symbol_id"`
	SessionID int64   `json:"session_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Angle     float64 `json:"angle"`
}

// TuioObject republishes the raw tracking record.
type TuioObject struct {
	Type    string        `json:"type"`
	Payload ObjectPayload `json:"payload"`
}

// NewTuioObject wraps a canonical record for broadcast.
func NewTuioObject(p ObjectPayload) TuioObject {
	return TuioObject{Type: TypeTuioObject, Payload: p}
}

// WheelOpen announces the patient wheel appearing on the surface.
type WheelOpen struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Marker string  `json:"marker"`
}

func NewWheelOpen(x, y float64) WheelOpen {
	return WheelOpen{Type: TypeWheelOpen, X: x, Y: y, Marker: MarkerPatient}
}

// WheelHover reports the sector currently under the patient wheel marker.
type WheelHover struct {
	Type       string  `json:"type"`
	Sector     int     `json:"sector"`
	Angle      float64 `json:"angle"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Medication string  `json:"medication"`
	Marker     string  `json:"marker"`
}

func NewWheelHover(sector int, angle, x, y float64, medication string) WheelHover {
	return WheelHover{
		Type:       TypeWheelHover,
		Sector:     sector,
		Angle:      angle,
		X:          x,
		Y:          y,
		Medication: medication,
		Marker:     MarkerPatient,
	}
}

// WheelSelectConfirm reports a selector token placed on the patient wheel.
type WheelSelectConfirm struct {
	Type       string `json:"type"`
	Sector     int    `json:"sector"`
	Medication string `json:"medication"`
	Marker     string `json:"marker"`
}

func NewWheelSelectConfirm(sector int, medication string) WheelSelectConfirm {
	return WheelSelectConfirm{
		Type:       TypeWheelSelectConfirm,
		Sector:     sector,
		Medication: medication,
		Marker:     MarkerPatient,
	}
}

// NurseWheelOpen announces the nurse wheel appearing on the surface.
type NurseWheelOpen struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func NewNurseWheelOpen(x, y float64) NurseWheelOpen {
	return NurseWheelOpen{Type: TypeNurseWheelOpen, X: x, Y: y}
}

// NurseWheelHover reports the sector currently under the nurse wheel marker.
type NurseWheelHover struct {
	Type       string  `json:"type"`
	Sector     int     `json:"sector"`
	Angle      float64 `json:"angle"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Medication string  `json:"medication"`
}

func NewNurseWheelHover(sector int, angle, x, y float64, medication string) NurseWheelHover {
	return NurseWheelHover{
		Type:       TypeNurseWheelHover,
		Sector:     sector,
		Angle:      angle,
		X:          x,
		Y:          y,
		Medication: medication,
	}
}

// NurseWheelSelect confirms a view-patient-info token on the nurse wheel.
type NurseWheelSelect struct {
	Type   string `json:"type"`
	Sector int    `json:"sector"`
	Item   string `json:"item"`
}

func NewNurseWheelSelect(sector int, item string) NurseWheelSelect {
	return NurseWheelSelect{Type: TypeNurseWheelSelect, Sector: sector, Item: item}
}

// NurseEditMedSelect confirms an edit-medications token on the nurse wheel.
type NurseEditMedSelect struct {
	Type       string `json:"type"`
	Sector     int    `json:"sector"`
	Medication string `json:"medication"`
}

func NewNurseEditMedSelect(sector int, medication string) NurseEditMedSelect {
	return NurseEditMedSelect{Type: TypeNurseEditMedSelect, Sector: sector, Medication: medication}
}

// BackPressed reports the back token being placed.
type BackPressed struct {
	Type string `json:"type"`
}

func NewBackPressed() BackPressed {
	return BackPressed{Type: TypeBackPressed}
}

// GestureModeToggled reports gesture detection being switched on or off.
type GestureModeToggled struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

func NewGestureModeToggled(enabled bool) GestureModeToggled {
	return GestureModeToggled{Type: TypeGestureModeToggled, Enabled: enabled}
}

// GestureTimeUpdate is a rate-limited provisional time selection.
type GestureTimeUpdate struct {
	Type    string `json:"type"`
	Time    string `json:"time"`
	Minutes int    `json:"minutes"`
}

func NewGestureTimeUpdate(timeStr string, minutes int) GestureTimeUpdate {
	return GestureTimeUpdate{Type: TypeGestureTimeUpdate, Time: timeStr, Minutes: minutes}
}

// GestureTimeFinal is the committed time selection.
type GestureTimeFinal struct {
	Type    string `json:"type"`
	Time    string `json:"time"`
	Minutes int    `json:"minutes"`
}

func NewGestureTimeFinal(timeStr string, minutes int) GestureTimeFinal {
	return GestureTimeFinal{Type: TypeGestureTimeFinal, Time: timeStr, Minutes: minutes}
}

// GestureSwipe reports a recognized trajectory gesture.
type GestureSwipe struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
}

func NewGestureSwipe(direction string) GestureSwipe {
	return GestureSwipe{Type: TypeGestureSwipe, Direction: direction}
}
