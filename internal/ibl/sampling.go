package ibl

import (
	"math"
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"
)

// RadicalInverse mirrors the bits of i around the binary point (Van der
// Corput sequence in base 2).
func RadicalInverse(i uint32) float32 {
	return float32(float64(bits.Reverse32(i)) * 2.3283064365386963e-10)
}

// Hammersley returns the i-th point of an n-point Hammersley set.
func Hammersley(i, n uint32) mgl32.Vec2 {
	return mgl32.Vec2{float32(i) / float32(n), RadicalInverse(i)}
}

// ImportanceSampleGGX returns a half vector around n distributed according
// to the GGX normal distribution with the given perceptual roughness.
func ImportanceSampleGGX(xi mgl32.Vec2, n mgl32.Vec3, roughness float32) mgl32.Vec3 {
	a := roughness * roughness

	phi := 2 * math.Pi * float64(xi[0])
	cosTheta := math.Sqrt((1 - float64(xi[1])) / (1 + (float64(a*a)-1)*float64(xi[1])))
	sinTheta := math.Sqrt(1 - cosTheta*cosTheta)

	h := mgl32.Vec3{
		float32(math.Cos(phi) * sinTheta),
		float32(math.Sin(phi) * sinTheta),
		float32(cosTheta),
	}

	up := mgl32.Vec3{0, 0, 1}
	if abs32(n[2]) >= 0.999 {
		up = mgl32.Vec3{1, 0, 0}
	}
	tangent := up.Cross(n).Normalize()
	bitangent := n.Cross(tangent)

	return tangent.Mul(h[0]).Add(bitangent.Mul(h[1])).Add(n.Mul(h[2])).Normalize()
}

// DistributionGGX is the Trowbridge-Reitz normal distribution function.
func DistributionGGX(nDotH, roughness float32) float32 {
	a := roughness * roughness
	a2 := a * a
	d := nDotH*nDotH*(a2-1) + 1
	return a2 / (math.Pi * d * d)
}

// GeometrySchlickGGX uses the k = a^2/2 remapping that applies to IBL.
func GeometrySchlickGGX(nDotV, roughness float32) float32 {
	k := roughness * roughness / 2
	return nDotV / (nDotV*(1-k) + k)
}

// GeometrySmith combines the view and light shadowing terms.
func GeometrySmith(nDotV, nDotL, roughness float32) float32 {
	return GeometrySchlickGGX(nDotV, roughness) * GeometrySchlickGGX(nDotL, roughness)
}

// IntegrateBRDF returns the split-sum scale and bias applied to F0 for the
// given view angle and roughness.
func IntegrateBRDF(nDotV, roughness float32, samples uint32) mgl32.Vec2 {
	nDotV = mgl32.Clamp(nDotV, 1e-4, 1)
	v := mgl32.Vec3{float32(math.Sqrt(float64(1 - nDotV*nDotV))), 0, nDotV}
	n := mgl32.Vec3{0, 0, 1}

	var a, b float32
	for i := uint32(0); i < samples; i++ {
		h := ImportanceSampleGGX(Hammersley(i, samples), n, roughness)
		l := h.Mul(2 * v.Dot(h)).Sub(v).Normalize()

		nDotL := max32(l[2], 0)
		nDotH := max32(h[2], 0)
		vDotH := max32(v.Dot(h), 0)
		if nDotL <= 0 {
			continue
		}
		g := GeometrySmith(nDotV, nDotL, roughness)
		gVis := g * vDotH / (nDotH * nDotV)
		fc := float32(math.Pow(float64(1-vDotH), 5))
		a += (1 - fc) * gVis
		b += fc * gVis
	}
	return mgl32.Vec2{a / float32(samples), b / float32(samples)}
}

// tangentFrame builds an orthonormal basis around n. It falls back to a
// different reference axis near the poles.
func tangentFrame(n mgl32.Vec3) (right, up mgl32.Vec3) {
	ref := mgl32.Vec3{0, 1, 0}
	if abs32(n[1]) > 0.999 {
		ref = mgl32.Vec3{0, 0, 1}
	}
	right = ref.Cross(n).Normalize()
	up = n.Cross(right).Normalize()
	return right, up
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
