package field

import "gonum.org/v1/gonum/spatial/r3"

type basisFunc func(x, y, z float64) r3.Vec

// basis holds the field shape of every multipole; index 0 is unused.
var basis = [NumMultipoles + 1]basisFunc{
	nil,
	// dipoles
	func(x, y, z float64) r3.Vec { return r3.Vec{X: 1} },
	func(x, y, z float64) r3.Vec { return r3.Vec{Y: 1} },
	func(x, y, z float64) r3.Vec { return r3.Vec{X: 1, Z: 1} },
	// quadrupoles
	func(x, y, z float64) r3.Vec { return r3.Vec{X: x, Y: -y} },
	func(x, y, z float64) r3.Vec { return r3.Vec{X: z, Z: x} },
	func(x, y, z float64) r3.Vec { return r3.Vec{Y: -y, Z: z} },
	func(x, y, z float64) r3.Vec { return r3.Vec{X: y, Y: x} },
	func(x, y, z float64) r3.Vec { return r3.Vec{Y: z, Z: y} },
	// sextupoles
	func(x, y, z float64) r3.Vec { return r3.Vec{X: x*x - y*y, Y: -2 * x * y} },
	func(x, y, z float64) r3.Vec { return r3.Vec{X: 2 * x * z, Y: -2 * y * z, Z: x*x - y*y} },
	func(x, y, z float64) r3.Vec { return r3.Vec{X: z*z - y*y, Y: -2 * x * y, Z: 2 * x * y} },
	func(x, y, z float64) r3.Vec { return r3.Vec{Y: -2 * y * z, Z: z*z - y*y} },
	func(x, y, z float64) r3.Vec { return r3.Vec{X: 2 * x * y, Y: x*x - y*y} },
	func(x, y, z float64) r3.Vec { return r3.Vec{X: y * z, Y: x * z, Z: x * y} },
	func(x, y, z float64) r3.Vec { return r3.Vec{Y: z*z - y*y, Z: 2 * y * z} },
	// octupoles
	func(x, y, z float64) r3.Vec {
		return r3.Vec{X: x*x*x - 3*x*y*y, Y: y*y*y - 3*x*x*y}
	},
	func(x, y, z float64) r3.Vec {
		return r3.Vec{X: 3*x*x*z - 3*z*y*y, Y: -6 * x * y * z, Z: x*x*x - 3*x*y*y}
	},
	func(x, y, z float64) r3.Vec {
		return r3.Vec{X: 3*x*z*z - 3*x*y*y, Y: -3*x*x*y - 3*z*z*y + 2*y*y*y, Z: 3*x*x*z - 3*z*y*y}
	},
	func(x, y, z float64) r3.Vec {
		return r3.Vec{X: z*z*z - 3*z*y*y, Y: -6 * x * y * z, Z: 3*x*z*z - 3*x*y*y}
	},
	func(x, y, z float64) r3.Vec {
		return r3.Vec{Y: y*y*y - 3*z*z*y, Z: z*z*z - 3*z*y*y}
	},
	func(x, y, z float64) r3.Vec {
		return r3.Vec{X: 3*x*x*y - y*y*y, Y: x*x*x - 3*x*y*y}
	},
	func(x, y, z float64) r3.Vec {
		return r3.Vec{X: 6 * x * y * z, Y: 3*x*x*z - 3*z*y*y, Z: 3*x*x*y - y*y*y}
	},
	func(x, y, z float64) r3.Vec {
		return r3.Vec{X: 3*z*z*y - y*y*y, Y: 3*x*z*z - 3*x*y*y, Z: 6 * x * y * z}
	},
	func(x, y, z float64) r3.Vec {
		return r3.Vec{Y: z*z*z - 3*z*y*y, Z: 3*z*z*y - y*y*y}
	},
}

var basisText = [NumMultipoles + 1]string{
	"",
	"(1, 0, 0)", "(0, 1, 0)", "(0, 0, 1)",
	"(x, -y, 0)", "(z, 0, x)", "(0, -y, z)", "(y, x, 0)", "(0, z, y)",
	"(x^2-y^2, -2xy, 0)", "(2xz, -2yz, x^2-y^2)", "(z^2-y^2, -2xy, 2xy)",
	"(0, -2yz, z^2-y^2)", "(2xy, x^2-y^2, 0)", "(yz, xz, xy)", "(0, z^2-y^2, 2yz)",
	"(x^3-3xy^2, y^3-3x^2y, 0)", "(3x^2z-3zy^2, -6xyz, x^3-3xy^2)",
	"(3xz^2-3xy^2, -3x^2y-3z^2y+2y^3, 3x^2z-3zy^2)", "(z^3-3zy^2, -6xyz, 3xz^2-3xy^2)",
	"(0, y^3-3z^2y, z^3-3zy^2)", "(3x^2y-y^3, x^3-3xy^2, 0)",
	"(6xyz, 3x^2z-3zy^2, 3x^2y-y^3)", "(3z^2y-y^3, 3xz^2-3xy^2, 6xyz)",
	"(0, z^3-3zy^2, 3z^2y-y^3)",
}
