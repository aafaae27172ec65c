package types

// HardwareInterface is one physical or virtual NIC as seen by the OS.
type HardwareInterface struct {
	Name            string           `json:"name"`
	Device          string           `json:"device"`
	Mac             string           `json:"mac"`
	IsActive        bool             `json:"isActive"`
	LogicInterfaces []LogicInterface `json:"logicInterfaces"`
}

// Clone returns a deep copy.
func (h HardwareInterface) Clone() HardwareInterface {
	out := h
	out.LogicInterfaces = make([]LogicInterface, len(h.LogicInterfaces))
	copy(out.LogicInterfaces, h.LogicInterfaces)
	return out
}

// LogicInterface is one addressing configuration bound to a hardware interface.
// Device is a back-reference to the owning HardwareInterface.
type LogicInterface struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Device  string `json:"device"`
	IP      string `json:"ip"`
	Mask    string `json:"mask"`
	Gateway string `json:"gateway"`
	Method  Method `json:"method"`
}

// Config returns the addressing part of the logical interface.
func (l LogicInterface) Config() AddressConfig {
	return AddressConfig{Method: l.Method, IP: l.IP, Mask: l.Mask, Gateway: l.Gateway}
}

// WithConfig returns a copy carrying cfg.
func (l LogicInterface) WithConfig(cfg AddressConfig) LogicInterface {
	l.Method = cfg.Method
	l.IP = cfg.IP
	l.Mask = cfg.Mask
	l.Gateway = cfg.Gateway
	return l
}

// UpdatePayload is the request to reconfigure (and optionally rename) a logical interface.
type UpdatePayload struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
	Method  string `json:"method"`
	IP      string `json:"ip"`
	Mask    string `json:"mask"`
	Gateway string `json:"gateway"`
}

// AddPayload is the request to create a logical interface on a hardware device.
type AddPayload struct {
	Device  string `json:"device"`
	Name    string `json:"name"`
	Method  string `json:"method"`
	IP      string `json:"ip"`
	Mask    string `json:"mask"`
	Gateway string `json:"gateway"`
}
