package fzreader

import "encoding/json"

// RecordType tags the decoded record variants.
type RecordType string

const (
	RecordRun      RecordType = "run"
	RecordEvent    RecordType = "event"
	RecordTracking RecordType = "tracking"
	RecordHV       RecordType = "hv"
	RecordFrame    RecordType = "frame"
	RecordCCD      RecordType = "ccd"
	RecordUnknown  RecordType = "unknown"
)

// EventType classifies events by the trigger sub-flag.
type EventType string

const (
	EventPedestal EventType = "pedestal"
	EventSky      EventType = "sky"
)

// TrackingMode is the telescope drive state, decoded from the integer mode
// code written by the tracking computer.
type TrackingMode string

const (
	TrackingOn      TrackingMode = "on"
	TrackingOff     TrackingMode = "off"
	TrackingSlewing TrackingMode = "slewing"
	TrackingStandby TrackingMode = "standby"
	TrackingZenith  TrackingMode = "zenith"
	TrackingCheck   TrackingMode = "check"
	TrackingStowing TrackingMode = "stowing"
	TrackingDrift   TrackingMode = "drift"
	TrackingUnknown TrackingMode = "unknown"
)

var trackingModes = map[uint32]TrackingMode{
	1: TrackingOn, 2: TrackingOff, 3: TrackingSlewing, 4: TrackingStandby,
	5: TrackingZenith, 6: TrackingCheck, 7: TrackingStowing, 8: TrackingDrift,
}

// Record is one decoded logical record: the record kind, the common header
// shared by every kind, a decode-success flag, and at most one kind-specific
// payload. When Decoded is false no payload is populated. Unknown records
// retain the raw bank identifier instead of a payload.
type Record struct {
	Type       RecordType
	TimeMJD    float64 // header MJD, 0 when out of range
	TimeString string  // formatted UTC, or "unknown"
	Decoded    bool
	Version    uint32

	BankID string // raw 4-character identifier, unknown records only

	Run      *RunPayload
	Event    *EventPayload
	Frame    *FramePayload
	Tracking *TrackingPayload
	HV       *HVPayload
}

// GPSFields is the reconciled absolute timestamp attached to event and
// frame records.
type GPSFields struct {
	Epoch       string    `json:"gps_epoch"`
	TrueTimeGRS bool      `json:"gps_truetime_grs"`
	Raw         [3]uint32 `json:"gps_data"`
	DayOfYear   int       `json:"gps_day_of_year"`
	MJD         float64   `json:"gps_mjd"`
	UTCSec      float64   `json:"gps_utc_time_sec"`
	UTCNanos    int64     `json:"gps_utc_time_ns"`
	UTCString   string    `json:"gps_utc_time_str"`
	Status      uint8     `json:"gps_status"`
	Good        bool      `json:"gps_is_good"`
}

// RunPayload carries the run header fields.
type RunPayload struct {
	RunNum          uint32  `json:"run_num"`
	SkyQuality      string  `json:"sky_quality"` // A, B, C or ?
	TrigMode        uint32  `json:"trig_mode"`
	SidLength       float32 `json:"sid_length"`
	NominalMJDStart float64 `json:"nominal_mjd_start"`
	NominalMJDEnd   float64 `json:"nominal_mjd_end"`
	Observers       string  `json:"observers"`
	Comment         string  `json:"comment"`
}

// EventPayload carries one triggered event. The elapsed-time and trigger
// fields only exist from the format version that introduced the auxiliary
// elapsed-time/trigger subsystem; before that they are absent, not zero.
type EventPayload struct {
	RunNum      uint32 `json:"run_num"`
	EventNum    uint32 `json:"event_num"`
	LivetimeSec uint32 `json:"livetime_sec"`
	LivetimeNS  uint32 `json:"livetime_ns"`

	ElaptimeSec *uint32   `json:"elaptime_sec,omitempty"`
	ElaptimeNS  *uint32   `json:"elaptime_ns,omitempty"`
	NTrigger    *uint32   `json:"ntrigger,omitempty"`
	TriggerData *[]uint32 `json:"trigger_data,omitempty"` // empty but present from version 74 on

	TriggerCode uint32    `json:"trigger_code"`
	EventType   EventType `json:"event_type"`
	GPSFields
	NADC      uint32   `json:"nadc"`
	ADCValues []uint16 `json:"adc_values"`
}

// FramePayload carries one calibration frame, from files predating the
// merge of calibration data into the event record.
type FramePayload struct {
	RunNum   uint32 `json:"run_num"`
	FrameNum uint32 `json:"frame_num"`
	GPSFields
	EventType EventType `json:"event_type"` // always pedestal
	NADC      uint32    `json:"nadc"`
	ADCValues []uint16  `json:"adc_values"`
}

// TrackingPayload carries the telescope drive status.
type TrackingPayload struct {
	Mode      TrackingMode `json:"mode"`
	ModeCode  uint32       `json:"mode_code"`
	ReadCycle uint32       `json:"read_cycle"`
	Status    uint32       `json:"status"`

	TargetRAHours  float64 `json:"target_ra_hours"`
	TargetRAStr    string  `json:"target_ra_hms_str"`
	TargetDecDeg   float64 `json:"target_dec_deg"`
	TargetDecStr   string  `json:"target_dec_dms_str"`
	TelescopeAzDeg float64 `json:"telescope_az_deg"`
	TelescopeElDeg float64 `json:"telescope_el_deg"`
	TrackingErrDeg float64 `json:"tracking_error_deg"`

	OnOffOffsetRAHours float64 `json:"onoff_offset_ra_hours"`
	OnOffOffsetRAStr   string  `json:"onoff_offset_ra_hms_str"`
	OnOffOffsetDecDeg  float64 `json:"onoff_offset_dec_deg"`
	OnOffOffsetDecStr  string  `json:"onoff_offset_dec_dms_str"`

	SiderealTimeHours *float64 `json:"sidereal_time_hours,omitempty"`
	SiderealTimeStr   string   `json:"sidereal_time_hms_str,omitempty"`

	Target string `json:"target"`
}

// HVPayload carries the high-voltage monitor arrays, sized by the channel
// count read from the record itself.
type HVPayload struct {
	ModeCode    uint32    `json:"mode_code"`
	NumChannels uint32    `json:"num_channels"`
	ReadCycle   uint32    `json:"read_cycle"`
	Status      []uint16  `json:"status"`
	VSet        []float32 `json:"v_set"`
	VActual     []float32 `json:"v_actual"`
	ISupply     []float32 `json:"i_supply"`
	IAnode      []float32 `json:"i_anode"`
}

// recordHeader is the flat common header shared by every serialized record.
type recordHeader struct {
	Type       RecordType `json:"record_type"`
	TimeMJD    float64    `json:"record_time_mjd"`
	TimeString string     `json:"record_time_str"`
	Decoded    bool       `json:"record_was_decoded"`
	Version    uint32     `json:"gdf_version"`
	BankID     string     `json:"bank_id,omitempty"`
}

// MarshalJSON flattens the tagged variant into one object: common header
// keys plus the keys of whichever payload is populated. Optional fields
// absent at the record's format version are omitted entirely rather than
// emitted as zeroes.
func (r *Record) MarshalJSON() ([]byte, error) {
	hdr := recordHeader{
		Type:       r.Type,
		TimeMJD:    r.TimeMJD,
		TimeString: r.TimeString,
		Decoded:    r.Decoded,
		Version:    r.Version,
		BankID:     r.BankID,
	}
	switch {
	case r.Run != nil:
		return json.Marshal(struct {
			recordHeader
			*RunPayload
		}{hdr, r.Run})
	case r.Event != nil:
		return json.Marshal(struct {
			recordHeader
			*EventPayload
		}{hdr, r.Event})
	case r.Frame != nil:
		return json.Marshal(struct {
			recordHeader
			*FramePayload
		}{hdr, r.Frame})
	case r.Tracking != nil:
		return json.Marshal(struct {
			recordHeader
			*TrackingPayload
		}{hdr, r.Tracking})
	case r.HV != nil:
		return json.Marshal(struct {
			recordHeader
			*HVPayload
		}{hdr, r.HV})
	default:
		return json.Marshal(hdr)
	}
}
