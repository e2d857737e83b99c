package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fidsim/internal/dynamo"
	"github.com/san-kum/fidsim/internal/units"
)

const (
	// NumMultipoles is the number of basis terms, indexed 1..NumMultipoles.
	NumMultipoles = 24

	// DipoleY is the index of the main field term, a uniform field along y.
	DipoleY = 2

	// ReferenceRadius is the distance at which relative strengths are quoted.
	ReferenceRadius = 1 * units.CM
)

// Multipole is a magnet field expanded in dipole, quadrupole, sextupole and
// octupole terms. Strength units depend on the order: T, T/m, T/m², T/m³.
type Multipole struct {
	strength [NumMultipoles + 1]float64
}

// NewMultipole returns a field whose only term is a dipole of b0 along y.
func NewMultipole(b0 float64) *Multipole {
	m := &Multipole{}
	m.strength[DipoleY] = b0
	return m
}

// NewStorageRing returns the 1.45 T storage-ring magnet.
func NewStorageRing() *Multipole {
	return NewMultipole(1.45 * units.Tesla)
}

func checkIndex(i int) error {
	if i < 1 || i > NumMultipoles {
		return fmt.Errorf("%w: %d (multipoles are defined for 1 to %d)", dynamo.ErrInvalidIndex, i, NumMultipoles)
	}
	return nil
}

// Evaluate sums every term at (x, y, z).
func (m *Multipole) Evaluate(x, y, z float64) r3.Vec {
	var b r3.Vec
	for i := 1; i <= NumMultipoles; i++ {
		s := m.strength[i]
		if s == 0 {
			continue
		}
		b = r3.Add(b, r3.Scale(s, basis[i](x, y, z)))
	}
	return b
}

// B0 returns the main dipole strength.
func (m *Multipole) B0() float64 {
	return m.strength[DipoleY]
}

// Strength returns the absolute strength of term i.
func (m *Multipole) Strength(i int) (float64, error) {
	if err := checkIndex(i); err != nil {
		return 0, err
	}
	return m.strength[i], nil
}

// SetStrength sets the absolute strength of term i.
func (m *Multipole) SetStrength(i int, s float64) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	m.strength[i] = s
	return nil
}

// SetStrengthAt1cm sets term i from its relative deviation at the 1 cm
// reference radius, scaled by the main dipole: rel * B0 / (1 cm)^order.
func (m *Multipole) SetStrengthAt1cm(i int, rel float64) error {
	order, err := Order(i)
	if err != nil {
		return err
	}
	m.strength[i] = rel / math.Pow(ReferenceRadius, float64(order)) * m.strength[DipoleY]
	return nil
}

// Clone returns an independent copy.
func (m *Multipole) Clone() *Multipole {
	c := *m
	return &c
}

// Order returns 0 for dipoles, 1 for quadrupoles, 2 for sextupoles and 3
// for octupoles.
func Order(i int) (int, error) {
	switch {
	case i >= 1 && i <= 3:
		return 0, nil
	case i >= 4 && i <= 8:
		return 1, nil
	case i >= 9 && i <= 15:
		return 2, nil
	case i >= 16 && i <= 24:
		return 3, nil
	}
	return 0, checkIndex(i)
}

var orderNames = [...]string{"Dipole", "Quadrupole", "Sextupole", "Octupole"}

// OrderName returns "Dipole", "Quadrupole", "Sextupole" or "Octupole".
func OrderName(i int) (string, error) {
	order, err := Order(i)
	if err != nil {
		return "", err
	}
	return orderNames[order], nil
}

// BasisDescription returns the shape of term i, e.g. "(x, -y, 0)".
func BasisDescription(i int) (string, error) {
	if err := checkIndex(i); err != nil {
		return "", err
	}
	return basisText[i], nil
}

// DescribeStrength renders a relative strength at 1 cm, e.g.
// "Quadrupole: 1.0 ppm/cm·(x, -y, 0)^T".
func DescribeStrength(i int, rel float64) (string, error) {
	order, err := Order(i)
	if err != nil {
		return "", err
	}

	value := fmt.Sprintf("%.1f ppm", rel/units.PPM)
	if rel < 1*units.PPM {
		value = fmt.Sprintf("%.1f ppb", rel/units.PPB)
	}

	unit := ""
	switch order {
	case 1:
		unit = "/cm"
	case 2:
		unit = "/cm^2"
	case 3:
		unit = "/cm^3"
	}
	return fmt.Sprintf("%s: %s%s·%s^T", orderNames[order], value, unit, basisText[i]), nil
}
