package network

// Switch element types.
const (
	SwitchBus     = "b"
	SwitchLine    = "l"
	SwitchTrafo   = "t"
	SwitchTrafo3w = "t3"
)

type Bus struct {
	Name      string  `yaml:"name,omitempty"`
	VnKv      float64 `yaml:"vn_kv"`
	InService bool    `yaml:"in_service"`
}

type Line struct {
	Name      string  `yaml:"name,omitempty"`
	StdType   string  `yaml:"std_type,omitempty"`
	FromBus   int     `yaml:"from_bus"`
	ToBus     int     `yaml:"to_bus"`
	LengthKm  float64 `yaml:"length_km"`
	ROhmPerKm float64 `yaml:"r_ohm_per_km"`
	XOhmPerKm float64 `yaml:"x_ohm_per_km"`
	CNfPerKm  float64 `yaml:"c_nf_per_km"`
	MaxIKa    float64 `yaml:"max_i_ka"`
	Df        float64 `yaml:"df"`
	Parallel  int     `yaml:"parallel"`
	InService bool    `yaml:"in_service"`
}

// ROhm is the total series resistance of the line.
func (l Line) ROhm() float64 { return l.ROhmPerKm * l.LengthKm }

// XOhm is the total series reactance of the line.
func (l Line) XOhm() float64 { return l.XOhmPerKm * l.LengthKm }

type Trafo struct {
	Name        string  `yaml:"name,omitempty"`
	StdType     string  `yaml:"std_type,omitempty"`
	HVBus       int     `yaml:"hv_bus"`
	LVBus       int     `yaml:"lv_bus"`
	SnMva       float64 `yaml:"sn_mva"`
	VnHvKv      float64 `yaml:"vn_hv_kv"`
	VnLvKv      float64 `yaml:"vn_lv_kv"`
	VkPercent   float64 `yaml:"vk_percent"`
	VkrPercent  float64 `yaml:"vkr_percent"`
	PfeKw       float64 `yaml:"pfe_kw"`
	I0Percent   float64 `yaml:"i0_percent"`
	ShiftDegree float64 `yaml:"shift_degree"`
	TapPos      int     `yaml:"tap_pos"`
	InService   bool    `yaml:"in_service"`
}

type Trafo3w struct {
	Name         string  `yaml:"name,omitempty"`
	StdType      string  `yaml:"std_type,omitempty"`
	HVBus        int     `yaml:"hv_bus"`
	MVBus        int     `yaml:"mv_bus"`
	LVBus        int     `yaml:"lv_bus"`
	SnHvMva      float64 `yaml:"sn_hv_mva"`
	SnMvMva      float64 `yaml:"sn_mv_mva"`
	SnLvMva      float64 `yaml:"sn_lv_mva"`
	VnHvKv       float64 `yaml:"vn_hv_kv"`
	VnMvKv       float64 `yaml:"vn_mv_kv"`
	VnLvKv       float64 `yaml:"vn_lv_kv"`
	VkHvPercent  float64 `yaml:"vk_hv_percent"`
	VkMvPercent  float64 `yaml:"vk_mv_percent"`
	VkLvPercent  float64 `yaml:"vk_lv_percent"`
	VkrHvPercent float64 `yaml:"vkr_hv_percent"`
	VkrMvPercent float64 `yaml:"vkr_mv_percent"`
	VkrLvPercent float64 `yaml:"vkr_lv_percent"`
	PfeKw        float64 `yaml:"pfe_kw"`
	I0Percent    float64 `yaml:"i0_percent"`
	InService    bool    `yaml:"in_service"`
}

// Impedance is a per-unit series impedance between two buses, possibly
// asymmetric.
type Impedance struct {
	Name      string  `yaml:"name,omitempty"`
	FromBus   int     `yaml:"from_bus"`
	ToBus     int     `yaml:"to_bus"`
	RftPu     float64 `yaml:"rft_pu"`
	XftPu     float64 `yaml:"xft_pu"`
	RtfPu     float64 `yaml:"rtf_pu"`
	XtfPu     float64 `yaml:"xtf_pu"`
	SnMva     float64 `yaml:"sn_mva"`
	InService bool    `yaml:"in_service"`
}

// Switch connects Bus to Element. For ET "b" the element is another bus,
// otherwise it is the id of a line, trafo or trafo3w.
type Switch struct {
	Name    string `yaml:"name,omitempty"`
	Bus     int    `yaml:"bus"`
	Element int    `yaml:"element"`
	ET      string `yaml:"et"`
	Closed  bool   `yaml:"closed"`
}

type Load struct {
	Name      string  `yaml:"name,omitempty"`
	Bus       int     `yaml:"bus"`
	PMw       float64 `yaml:"p_mw"`
	QMvar     float64 `yaml:"q_mvar"`
	Scaling   float64 `yaml:"scaling"`
	InService bool    `yaml:"in_service"`
}

type Sgen struct {
	Name      string  `yaml:"name,omitempty"`
	Bus       int     `yaml:"bus"`
	PMw       float64 `yaml:"p_mw"`
	QMvar     float64 `yaml:"q_mvar"`
	Scaling   float64 `yaml:"scaling"`
	InService bool    `yaml:"in_service"`
}

type Gen struct {
	Name      string  `yaml:"name,omitempty"`
	Bus       int     `yaml:"bus"`
	PMw       float64 `yaml:"p_mw"`
	VmPu      float64 `yaml:"vm_pu"`
	Scaling   float64 `yaml:"scaling"`
	Slack     bool    `yaml:"slack"`
	InService bool    `yaml:"in_service"`
}

type ExtGrid struct {
	Name      string  `yaml:"name,omitempty"`
	Bus       int     `yaml:"bus"`
	VmPu      float64 `yaml:"vm_pu"`
	VaDegree  float64 `yaml:"va_degree"`
	InService bool    `yaml:"in_service"`
}

// Ward is a static equivalent: constant power plus constant impedance load.
type Ward struct {
	Name      string  `yaml:"name,omitempty"`
	Bus       int     `yaml:"bus"`
	PsMw      float64 `yaml:"ps_mw"`
	QsMvar    float64 `yaml:"qs_mvar"`
	PzMw      float64 `yaml:"pz_mw"`
	QzMvar    float64 `yaml:"qz_mvar"`
	InService bool    `yaml:"in_service"`
}

// XWard extends Ward with an internal voltage source behind ROhm + jXOhm.
type XWard struct {
	Name      string  `yaml:"name,omitempty"`
	Bus       int     `yaml:"bus"`
	PsMw      float64 `yaml:"ps_mw"`
	QsMvar    float64 `yaml:"qs_mvar"`
	PzMw      float64 `yaml:"pz_mw"`
	QzMvar    float64 `yaml:"qz_mvar"`
	ROhm      float64 `yaml:"r_ohm"`
	XOhm      float64 `yaml:"x_ohm"`
	VmPu      float64 `yaml:"vm_pu"`
	InService bool    `yaml:"in_service"`
}

// VSC is a voltage source converter linking an AC bus to a DC bus.
type VSC struct {
	Name      string  `yaml:"name,omitempty"`
	Bus       int     `yaml:"bus"`
	BusDC     int     `yaml:"bus_dc"`
	ROhm      float64 `yaml:"r_ohm"`
	XOhm      float64 `yaml:"x_ohm"`
	RDcOhm    float64 `yaml:"r_dc_ohm"`
	InService bool    `yaml:"in_service"`
}

type LineDC struct {
	Name      string  `yaml:"name,omitempty"`
	FromBusDC int     `yaml:"from_bus_dc"`
	ToBusDC   int     `yaml:"to_bus_dc"`
	LengthKm  float64 `yaml:"length_km"`
	ROhmPerKm float64 `yaml:"r_ohm_per_km"`
	InService bool    `yaml:"in_service"`
}

// ROhm is the total resistance of the DC line.
func (l LineDC) ROhm() float64 { return l.ROhmPerKm * l.LengthKm }
