package levels

import (
	"sort"

	"alert-systemv1/internal/model"
)

// ProfileBin is one price bucket of the volume profile. Price is the
// bin centre in rupees.
type ProfileBin struct {
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

// VolumeProfile summarises where the session's volume traded. POC is
// the highest-volume bin; VAH and VAL bound the bins holding 70% of
// the session volume.
type VolumeProfile struct {
	POC  float64      `json:"poc"`
	VAH  float64      `json:"vah"`
	VAL  float64      `json:"val"`
	Bins []ProfileBin `json:"bins"`
}

// Profile bins candle closes weighted by traded volume. ok is false
// with fewer than ten candles or a zero-volume session.
func Profile(candles []model.Candle, bins int) (VolumeProfile, bool) {
	if bins <= 0 {
		bins = DefaultProfileBins
	}
	if len(candles) < minProfileCandles {
		return VolumeProfile{}, false
	}

	minP, maxP := rupees(candles[0].Close), rupees(candles[0].Close)
	for _, c := range candles[1:] {
		p := rupees(c.Close)
		if p < minP {
			minP = p
		}
		if p > maxP {
			maxP = p
		}
	}

	if maxP == minP {
		// A flat session collapses to a single bin.
		var total int64
		for _, c := range candles {
			total += c.Volume
		}
		if total == 0 {
			return VolumeProfile{}, false
		}
		bin := ProfileBin{Price: minP, Volume: total}
		return VolumeProfile{POC: minP, VAH: minP, VAL: minP, Bins: []ProfileBin{bin}}, true
	}

	size := (maxP - minP) / float64(bins)
	vols := make([]int64, bins)
	for _, c := range candles {
		idx := int((rupees(c.Close) - minP) / size)
		if idx >= bins {
			idx = bins - 1
		}
		vols[idx] += c.Volume
	}

	var out []ProfileBin
	var total int64
	for i, v := range vols {
		if v == 0 {
			continue
		}
		out = append(out, ProfileBin{Price: minP + (float64(i)+0.5)*size, Volume: v})
		total += v
	}
	if len(out) == 0 {
		return VolumeProfile{}, false
	}

	// Ascending scan keeps the lowest-priced bin on volume ties.
	poc := out[0]
	for _, b := range out[1:] {
		if b.Volume > poc.Volume {
			poc = b
		}
	}

	// Value area: take bins by descending volume until 70% is covered.
	byVol := append([]ProfileBin(nil), out...)
	sort.SliceStable(byVol, func(i, j int) bool { return byVol[i].Volume > byVol[j].Volume })
	target := float64(total) * valueAreaShare
	var acc int64
	vah, val := poc.Price, poc.Price
	for _, b := range byVol {
		acc += b.Volume
		if b.Price > vah {
			vah = b.Price
		}
		if b.Price < val {
			val = b.Price
		}
		if float64(acc) >= target {
			break
		}
	}

	return VolumeProfile{POC: poc.Price, VAH: vah, VAL: val, Bins: out}, true
}
