package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// QuatToEuler returns roll, pitch and yaw in radians.
func QuatToEuler(q mgl32.Quat) (e mgl32.Vec3) {
	sinrCosp := float64(2 * (q.W*q.X() + q.Y()*q.Z()))
	cosrCosp := float64(1 - 2*(q.X()*q.X()+q.Y()*q.Y()))
	e[0] = float32(math.Atan2(sinrCosp, cosrCosp))

	sinp := float64(2 * (q.W*q.Y() - q.Z()*q.X()))
	if math.Abs(sinp) >= 1 {
		// gimbal lock
		e[1] = float32(math.Copysign(math.Pi/2, sinp))
	} else {
		e[1] = float32(math.Asin(sinp))
	}

	sinyCosp := float64(2 * (q.W*q.Z() + q.X()*q.Y()))
	cosyCosp := float64(1 - 2*(q.Y()*q.Y()+q.Z()*q.Z()))
	e[2] = float32(math.Atan2(sinyCosp, cosyCosp))

	return e
}

func RadiansToDegreeV3(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{mgl32.RadToDeg(v[0]), mgl32.RadToDeg(v[1]), mgl32.RadToDeg(v[2])}
}
