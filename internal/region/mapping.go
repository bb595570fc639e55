package region

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/regions-cli/internal/nuts"
)

// Attribute names fixed by the GISCO NUTS distribution.
const (
	AttrNUTSID    = "NUTS_ID"
	AttrLevelCode = "LEVL_CODE"
	AttrCountry   = "CNTR_CODE"
	AttrNameLatin = "NAME_LATN"
	AttrNUTSName  = "NUTS_NAME"
	AttrMountType = "MOUNT_TYPE"
	AttrUrbanType = "URBN_TYPE"
	AttrCoastType = "COAST_TYPE"
	AttrFID       = "FID"
)

// FromFeature copies the NUTS attributes of one feature into a Region.
// Geometry is encoded only when withGeometry is set.
func FromFeature(f nuts.Feature, withGeometry bool) (Region, error) {
	r := Region{
		NUTSID:      text(f, AttrNUTSID),
		CountryCode: text(f, AttrCountry),
		NameLatin:   text(f, AttrNameLatin),
		NUTSName:    text(f, AttrNUTSName),
		FID:         text(f, AttrFID),
	}
	if r.NUTSID == "" {
		return Region{}, eris.Errorf("region: feature has no %s", AttrNUTSID)
	}

	level, err := f.Int(AttrLevelCode)
	if err != nil {
		return Region{}, eris.Wrapf(err, "region: %s", r.NUTSID)
	}
	if level == nil {
		return Region{}, eris.Errorf("region: %s has no %s", r.NUTSID, AttrLevelCode)
	}
	r.LevelCode = *level

	for _, c := range []struct {
		attr string
		dst  **int
	}{
		{AttrMountType, &r.MountType},
		{AttrUrbanType, &r.UrbanType},
		{AttrCoastType, &r.CoastType},
	} {
		v, err := f.Int(c.attr)
		if err != nil {
			return Region{}, eris.Wrapf(err, "region: %s", r.NUTSID)
		}
		*c.dst = v
	}

	if withGeometry {
		wkb, err := nuts.EncodeGeometry(f.Geometry)
		if err != nil {
			return Region{}, eris.Wrapf(err, "region: %s geometry", r.NUTSID)
		}
		r.Geometry = wkb
	}

	return r, nil
}

// FromFeatures maps every feature in order, failing on the first bad one.
func FromFeatures(features []nuts.Feature, withGeometry bool) ([]Region, error) {
	regions := make([]Region, 0, len(features))
	for i, f := range features {
		r, err := FromFeature(f, withGeometry)
		if err != nil {
			return nil, eris.Wrapf(err, "region: feature %d", i)
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func text(f nuts.Feature, attr string) string {
	return norm.NFC.String(strings.TrimSpace(f.Text(attr)))
}
