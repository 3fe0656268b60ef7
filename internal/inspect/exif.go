package inspect

import (
	"os"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/your-org/mediasink/internal/media"
)

// extractExif reads the embedded EXIF block. Missing or corrupt
// blocks return nil; capture metadata is strictly best-effort and
// must never fail an Inspect call.
func extractExif(path string) *media.Exif {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil
	}

	out := &media.Exif{
		CameraMake:  exifString(x, exif.Make),
		CameraModel: exifString(x, exif.Model),
	}

	out.FocalLengthMm = exifRational(x, exif.FocalLength)
	out.Aperture = exifRational(x, exif.FNumber)
	out.ShutterSpeedSeconds = exifRational(x, exif.ExposureTime)

	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if iso, err := tag.Int(0); err == nil {
			out.ISO = iso
		}
	}

	if takenAt, err := x.DateTime(); err == nil {
		out.TakenAt = &takenAt
	}

	if lat, lon, err := x.LatLong(); err == nil {
		out.Location = &media.Location{Lat: lat, Lon: lon}
	}

	return out
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}

func exifRational(x *exif.Exif, name exif.FieldName) float64 {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
