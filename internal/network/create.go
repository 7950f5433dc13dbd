package network

import "fmt"

// CreateSwitch appends a switch and returns its id.
func (n *Network) CreateSwitch(bus, element int, et string, closed bool) int {
	return n.Switches.Append(Switch{Bus: bus, Element: element, ET: et, Closed: closed})
}

// CreateImpedance appends a symmetric in-service impedance and returns its id.
func (n *Network) CreateImpedance(fromBus, toBus int, rPu, xPu, snMva float64) int {
	return n.Impedances.Append(Impedance{
		FromBus:   fromBus,
		ToBus:     toBus,
		RftPu:     rPu,
		XftPu:     xPu,
		RtfPu:     rPu,
		XtfPu:     xPu,
		SnMva:     snMva,
		InService: true,
	})
}

// CreateWard appends an in-service ward and returns its id.
func (n *Network) CreateWard(bus int, psMw, qsMvar, pzMw, qzMvar float64) int {
	return n.Wards.Append(Ward{
		Bus:       bus,
		PsMw:      psMw,
		QsMvar:    qsMvar,
		PzMw:      pzMw,
		QzMvar:    qzMvar,
		InService: true,
	})
}

// ReplaceXWardByWard takes the given xwards out of service and adds a ward
// carrying the same constant power and constant impedance parts for each.
// The internal voltage source of the xward is dropped. It returns the ids of
// the new wards.
func (n *Network) ReplaceXWardByWard(ids []int) ([]int, error) {
	wards := make([]int, 0, len(ids))
	for _, id := range ids {
		xw, ok := n.XWards.Get(id)
		if !ok {
			return wards, fmt.Errorf("%w: xward %d", ErrMissingID, id)
		}
		xw.InService = false
		_ = n.XWards.Set(id, xw)
		wid := n.Wards.Append(Ward{
			Name:      xw.Name,
			Bus:       xw.Bus,
			PsMw:      xw.PsMw,
			QsMvar:    xw.QsMvar,
			PzMw:      xw.PzMw,
			QzMvar:    xw.QzMvar,
			InService: true,
		})
		wards = append(wards, wid)
	}
	return wards, nil
}
