package logic

import "math"

// Dewpoint returns the dewpoint in degrees C for temperature t (C) and
// relative humidity h (%), using the simplified formula from Lawrence (2005),
// doi:10.1175/BAMS-86-2-225.
func Dewpoint(t, h float64) float64 {
	return t - (100-h)*math.Pow((t+273.15)/300, 2)/5 - 0.00135*math.Pow(h-84, 2) + 0.35
}

// WindChill returns the wind chill in degrees C. Outside the formula's
// domain (wind at or below 4.8 km/h, or temperature above 10 C) it returns t.
func WindChill(t, windKmh float64) float64 {
	if windKmh <= 4.8 || t > 10 {
		return t
	}
	w := math.Pow(windKmh, 0.16)
	return 13.12 + 0.6215*t - 11.37*w + 0.3965*t*w
}

var compassPoints = [16]string{
	" N ", "NNE", " NE", "ENE",
	" E ", "ESE", " SE", "SSE",
	" S ", "SSW", " SW", "WSW",
	" W ", "WNW", " NW", "NNW",
}

// CompassPoint returns the padded three-character label for a 0-15 direction index.
func CompassPoint(index uint8) string {
	return compassPoints[index&0xf]
}
