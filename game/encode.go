package game

// Feature plane layout of Planes, each plane is NumCells wide. Planes 32-55
// are reserved and left zero.
const (
	PlaneOwnPieces      = 0
	PlaneOpponentPieces = 8
	PlaneBlackTiles     = 16
	PlaneGrayTiles      = 24
	PlaneOwnBlackStock  = 56
	PlaneOwnGrayStock   = 64
	PlaneOppBlackStock  = 72
	PlaneOppGrayStock   = 80
	PlaneColor          = 88
	PlanePly            = 89

	NumPlanes = 90

	// Ply plane normalizer, matches the training horizon of the evaluator
	PlyScale = 150.0
)

// Planes is the evaluator input for one state, plane-major.
type Planes [NumPlanes * NumCells]float32

// Planes encodes the state from the mover's perspective: the board is rotated
// by 180 degrees when P2 is to move.
func (s *State) Planes() *Planes {
	p := &Planes{}
	s.EncodeTo(p)
	return p
}

// EncodeTo overwrites p with the encoding of s.
func (s *State) EncodeTo(p *Planes) {
	*p = Planes{}
	me, opp := s.Turn, s.Turn.Opponent()
	for i := 0; i < HistorySize; i++ {
		snap := s.snapshot(i)
		for cell := 0; cell < NumCells; cell++ {
			src := canonicalCell(cell, me)
			switch snap.Pieces[src] {
			case me:
				p.set(PlaneOwnPieces+i, cell, 1)
			case opp:
				p.set(PlaneOpponentPieces+i, cell, 1)
			}
			switch snap.Tiles[src] {
			case Black:
				p.set(PlaneBlackTiles+i, cell, 1)
			case Gray:
				p.set(PlaneGrayTiles+i, cell, 1)
			}
		}
		p.fill(PlaneOwnBlackStock+i, float32(snap.Stock[me.index()][0])/InitialBlackTiles)
		p.fill(PlaneOwnGrayStock+i, float32(snap.Stock[me.index()][1])/InitialGrayTiles)
		p.fill(PlaneOppBlackStock+i, float32(snap.Stock[opp.index()][0])/InitialBlackTiles)
		p.fill(PlaneOppGrayStock+i, float32(snap.Stock[opp.index()][1])/InitialGrayTiles)
	}
	p.fill(PlaneColor, 1)
	p.fill(PlanePly, float32(s.Ply)/PlyScale)
}

// Plane returns one plane as a slice into p.
func (p *Planes) Plane(i int) []float32 {
	return p[i*NumCells : (i+1)*NumCells]
}

func (p *Planes) set(plane, cell int, v float32) {
	p[plane*NumCells+cell] = v
}

func (p *Planes) fill(plane int, v float32) {
	row := p.Plane(plane)
	for i := range row {
		row[i] = v
	}
}
