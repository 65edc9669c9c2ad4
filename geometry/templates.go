package geometry

// template is one entry in a host's candidate list: a nominal cylinder
// count plus the fixed fields that don't depend on the cylinder count
// search, grounded in img.c's per-host opener tables (ibm_geometry and
// friends).
type template struct {
	nominalCyls int
	sides       int
	nrSectors   int
	secNo       int
	interleave  int
	skew        int
	skewCyls    bool
	hasIAM      bool
	rpm         int
	encoding    Encoding
	layout      Layout
	gap3        int
	baseOff     int64
	secBase     int
	itn         bool // inter-track numbering: side 1 ids continue past side 0's
	host        Host
}

func gap3ForSecNo(secNo int) int {
	table := []int{32, 54, 84, 116, 116, 116, 116}
	if secNo < len(table) {
		return table[secNo]
	}
	return 116
}

func fmGap3ForSecNo(secNo int) int {
	table := []int{27, 42, 58, 138, 138, 138, 138}
	if secNo < len(table) {
		return table[secNo]
	}
	return 138
}

func (t template) geometry(cyls int) Geometry {
	secSize := 128 << uint(t.secNo)
	gap3 := t.gap3
	if gap3 == 0 {
		if t.encoding == EncodingFM {
			gap3 = fmGap3ForSecNo(t.secNo)
		} else {
			gap3 = gap3ForSecNo(t.secNo)
		}
	}
	g := Geometry{
		Host:         t.host,
		Encoding:     t.encoding,
		NrCyls:       cyls,
		NrSides:      t.sides,
		NrSectors:    t.nrSectors,
		SecNo:        t.secNo,
		SecSize:      secSize,
		Interleave:   t.interleave,
		Skew:         t.skew,
		SkewCylsOnly: t.skewCyls,
		HasIAM:       t.hasIAM,
		Layout:       t.layout,
		RPM:          t.rpm,
		Gap3:         gap3,
		BaseOff:      t.baseOff,
		SecBase:      [2]int{t.secBase, t.secBase},
	}
	if t.itn {
		g.SecBase[1] += t.nrSectors
	}
	if t.encoding == EncodingFM {
		g.DataRateKbps = 250
		g.Gap2 = 11
		g.Gap4a = 16
	} else {
		g.Gap2 = 22
		g.Gap4a = 80
		g.DataRateKbps = 250
	}
	if t.host == HostUKNC {
		ApplyUKNCOverrides(&g)
	}
	return g
}

// genericTemplates is the default IMG list the fallback rule retries
// against when a host-specific list fails to match.
var genericTemplates = []template{
	{nominalCyls: 80, sides: 2, nrSectors: 18, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostPCDOS},           // 1.44M
	{nominalCyls: 80, sides: 2, nrSectors: 15, secNo: 2, interleave: 1, hasIAM: true, rpm: 360, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostPCDOS},           // 1.2M
	{nominalCyls: 80, sides: 2, nrSectors: 9, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostPCDOS},            // 720K
	{nominalCyls: 80, sides: 2, nrSectors: 10, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 30, secBase: 1, host: HostPCDOS}, // 800K/D81
	{nominalCyls: 80, sides: 2, nrSectors: 11, secNo: 2, interleave: 2, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 3, secBase: 1, host: HostPCDOS},  // 880K
	{nominalCyls: 80, sides: 2, nrSectors: 8, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostPCDOS},            // 640K
	{nominalCyls: 40, sides: 2, nrSectors: 9, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostPCDOS},            // 360K
	{nominalCyls: 40, sides: 1, nrSectors: 8, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostPCDOS},            // 160K
	{nominalCyls: 40, sides: 2, nrSectors: 8, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostPCDOS},            // 320K
	{nominalCyls: 40, sides: 1, nrSectors: 9, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostPCDOS},            // 180K
	{nominalCyls: 40, sides: 1, nrSectors: 10, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 30, secBase: 1, host: HostPCDOS}, // 200K
	{nominalCyls: 40, sides: 2, nrSectors: 10, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 30, secBase: 1, host: HostPCDOS}, // 400K
	{nominalCyls: 80, sides: 2, nrSectors: 19, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 70, secBase: 1, host: HostPCDOS}, // 1.52M
	{nominalCyls: 80, sides: 2, nrSectors: 21, secNo: 2, interleave: 2, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 18, secBase: 1, host: HostPCDOS}, // 1.68M
	{nominalCyls: 80, sides: 2, nrSectors: 20, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 40, secBase: 1, host: HostPCDOS}, // 1.6M
	{nominalCyls: 80, sides: 2, nrSectors: 36, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostPCDOS},           // 2.88M
}

var atariSTTemplates = []template{
	{nominalCyls: 80, sides: 2, nrSectors: 9, secNo: 2, interleave: 2, skew: 2, hasIAM: false, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostAtariST},
	{nominalCyls: 80, sides: 2, nrSectors: 10, secNo: 2, interleave: 2, skew: 2, hasIAM: false, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 30, secBase: 1, host: HostAtariST},
	{nominalCyls: 80, sides: 1, nrSectors: 9, secNo: 2, interleave: 2, skew: 2, hasIAM: false, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostAtariST},
}

// amigaADFTemplates describes the single fixed Amiga ADF shape: 80 cyls,
// 2 sides, 11 sectors/track, 512-byte sectors, no interleave reordering
// (matches the constants hfe/adf.go hardcodes for Amiga disks).
var amigaADFTemplates = []template{
	{nominalCyls: 80, sides: 2, nrSectors: 11, secNo: 2, interleave: 1, hasIAM: false, rpm: 300, encoding: EncodingAmigaMFM, layout: LayoutInterleaved, host: HostAmigaADF},
}

// ti99Templates describe the TI-99 floppy shapes: sequential-reverse-side1
// layout, no IAM, skew 3 on cylinders only, FM single-density at interleave
// 4 and MFM double-density at interleave 5. Same-size ties (DSSD vs SSDD,
// DSDD vs DSSD80) are broken by the Volume Information Block when one is
// present, so the ambiguous pair's default must come first in this list.
var ti99Templates = []template{
	{nominalCyls: 40, sides: 1, nrSectors: 9, secNo: 1, interleave: 4, skew: 3, skewCyls: true, hasIAM: false, rpm: 300, encoding: EncodingFM, layout: LayoutSequentialReverseSide1, gap3: 44, host: HostTI99},   // SSSD
	{nominalCyls: 40, sides: 2, nrSectors: 9, secNo: 1, interleave: 4, skew: 3, skewCyls: true, hasIAM: false, rpm: 300, encoding: EncodingFM, layout: LayoutSequentialReverseSide1, gap3: 44, host: HostTI99},   // DSSD
	{nominalCyls: 40, sides: 1, nrSectors: 18, secNo: 1, interleave: 5, skew: 3, skewCyls: true, hasIAM: false, rpm: 300, encoding: EncodingMFM, layout: LayoutSequentialReverseSide1, gap3: 24, host: HostTI99}, // SSDD
	{nominalCyls: 40, sides: 2, nrSectors: 18, secNo: 1, interleave: 5, skew: 3, skewCyls: true, hasIAM: false, rpm: 300, encoding: EncodingMFM, layout: LayoutSequentialReverseSide1, gap3: 24, host: HostTI99}, // DSDD
	{nominalCyls: 80, sides: 2, nrSectors: 9, secNo: 1, interleave: 4, skew: 3, skewCyls: true, hasIAM: false, rpm: 300, encoding: EncodingFM, layout: LayoutSequentialReverseSide1, gap3: 44, host: HostTI99},   // DSSD80
	{nominalCyls: 80, sides: 2, nrSectors: 18, secNo: 1, interleave: 5, skew: 3, skewCyls: true, hasIAM: false, rpm: 300, encoding: EncodingMFM, layout: LayoutSequentialReverseSide1, gap3: 24, host: HostTI99}, // DSDD80
	{nominalCyls: 80, sides: 2, nrSectors: 36, secNo: 1, interleave: 5, skew: 3, skewCyls: true, hasIAM: false, rpm: 300, encoding: EncodingMFM, layout: LayoutSequentialReverseSide1, gap3: 24, host: HostTI99}, // DSHD80
}

// trdosTemplates cover the four geometries the 0x8E3 byte selects.
var trdosTemplates = []template{
	{nominalCyls: 40, sides: 1, nrSectors: 16, secNo: 1, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 57, secBase: 1, host: HostTRDOS}, // 0x16
	{nominalCyls: 40, sides: 2, nrSectors: 16, secNo: 1, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 57, secBase: 1, host: HostTRDOS}, // 0x17
	{nominalCyls: 80, sides: 1, nrSectors: 16, secNo: 1, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 57, secBase: 1, host: HostTRDOS}, // 0x18
	{nominalCyls: 80, sides: 2, nrSectors: 16, secNo: 1, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 57, secBase: 1, host: HostTRDOS}, // 0x19
}

var ukncTemplates = []template{
	{nominalCyls: 80, sides: 2, nrSectors: 10, secNo: 2, interleave: 1, hasIAM: false, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 38, secBase: 1, host: HostUKNC},
}

// akaiTemplates carry the Akai sampler shapes (5 or 10 1kB sectors); GEM
// hosts share this list, the same aliasing img_open applies to HOST_gem.
var akaiTemplates = []template{
	{nominalCyls: 80, sides: 2, nrSectors: 5, secNo: 3, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 116, secBase: 1, host: HostAkai},  // DD
	{nominalCyls: 80, sides: 2, nrSectors: 10, secNo: 3, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 116, secBase: 1, host: HostAkai}, // HD
}

var casioTemplates = []template{
	{nominalCyls: 80, sides: 2, nrSectors: 8, secNo: 3, interleave: 3, hasIAM: true, rpm: 360, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 116, secBase: 1, host: HostCasio}, // 1280K
}

// decTemplates hold only the RX50 shape; RX33 (1.2M) comes from the
// generic fallback list.
var decTemplates = []template{
	{nominalCyls: 80, sides: 1, nrSectors: 10, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 30, secBase: 1, host: HostDEC}, // RX50 400K
}

var ensoniqTemplates = []template{
	{nominalCyls: 80, sides: 2, nrSectors: 10, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 30, host: HostEnsoniq}, // 800K
	{nominalCyls: 80, sides: 2, nrSectors: 20, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 40, host: HostEnsoniq}, // 1.6M
}

var flukeTemplates = []template{
	{nominalCyls: 80, sides: 2, nrSectors: 16, secNo: 1, interleave: 2, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 57, host: HostFluke},
}

// kayproTemplates use inter-track numbering: side 1's sector ids continue
// where side 0's leave off.
var kayproTemplates = []template{
	{nominalCyls: 40, sides: 1, nrSectors: 10, secNo: 2, interleave: 3, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 30, itn: true, host: HostKaypro}, // 200K
	{nominalCyls: 40, sides: 2, nrSectors: 10, secNo: 2, interleave: 3, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 30, itn: true, host: HostKaypro}, // 400K
	{nominalCyls: 80, sides: 2, nrSectors: 10, secNo: 2, interleave: 3, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 30, itn: true, host: HostKaypro}, // 800K
}

var memotechTemplates = []template{
	{nominalCyls: 40, sides: 2, nrSectors: 16, secNo: 1, interleave: 3, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 57, secBase: 1, host: HostMemotech}, // Type 03
	{nominalCyls: 80, sides: 2, nrSectors: 16, secNo: 1, interleave: 3, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 57, secBase: 1, host: HostMemotech}, // Type 07
}

// nascomTemplates skew by cylinder only, the same skew axis TI-99 uses.
var nascomTemplates = []template{
	{nominalCyls: 80, sides: 1, nrSectors: 16, secNo: 1, interleave: 3, skew: 8, skewCyls: true, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 57, secBase: 1, host: HostNascom}, // 320K
	{nominalCyls: 80, sides: 2, nrSectors: 16, secNo: 1, interleave: 3, skew: 8, skewCyls: true, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 57, secBase: 1, host: HostNascom}, // 360K
}

var pc98Templates = []template{
	{nominalCyls: 80, sides: 2, nrSectors: 8, secNo: 3, interleave: 1, hasIAM: true, rpm: 360, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 116, secBase: 1, host: HostPC98}, // 1232K
	{nominalCyls: 80, sides: 2, nrSectors: 8, secNo: 2, interleave: 1, hasIAM: true, rpm: 360, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 116, secBase: 1, host: HostPC98}, // 640K
	{nominalCyls: 80, sides: 2, nrSectors: 9, secNo: 2, interleave: 1, hasIAM: true, rpm: 360, encoding: EncodingMFM, layout: LayoutInterleaved, gap3: 116, secBase: 1, host: HostPC98}, // 720K
}

var msxTemplates = []template{
	{nominalCyls: 80, sides: 2, nrSectors: 9, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostMSX},
	{nominalCyls: 80, sides: 1, nrSectors: 9, secNo: 2, interleave: 1, hasIAM: true, rpm: 300, encoding: EncodingMFM, layout: LayoutInterleaved, secBase: 1, host: HostMSX},
}

// templateListsFor returns the ordered lists Resolve searches for hint,
// host-specific overrides applied before the generic fallback.
func templateListsFor(hint Host) [][]template {
	switch hint {
	case HostPCDOS:
		return [][]template{genericTemplates}
	case HostAtariST:
		return [][]template{atariSTTemplates}
	case HostAmigaADF:
		return [][]template{amigaADFTemplates}
	case HostTI99:
		return [][]template{ti99Templates}
	case HostTRDOS:
		return [][]template{trdosTemplates}
	case HostUKNC:
		return [][]template{ukncTemplates}
	case HostMSX:
		return [][]template{msxTemplates}
	case HostAkai, HostGEM:
		return [][]template{akaiTemplates}
	case HostCasio:
		return [][]template{casioTemplates}
	case HostDEC:
		return [][]template{decTemplates}
	case HostEnsoniq:
		return [][]template{ensoniqTemplates}
	case HostFluke:
		return [][]template{flukeTemplates}
	case HostKaypro:
		return [][]template{kayproTemplates}
	case HostMemotech:
		return [][]template{memotechTemplates}
	case HostNascom:
		return [][]template{nascomTemplates}
	case HostPC98:
		return [][]template{pc98Templates}
	default:
		return [][]template{genericTemplates}
	}
}

// ApplyUKNCOverrides installs the UKNC gap overrides; template.geometry
// calls it for every HostUKNC template (img.c applies these before template
// matching rather than after, but the net field values are the same since
// gaps don't participate in the size match).
func ApplyUKNCOverrides(g *Geometry) {
	g.Gap2 = 24
	g.Gap4a = 27
	g.PostCRCSyncs = 1
}
