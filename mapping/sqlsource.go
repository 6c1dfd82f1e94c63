package mapping

// SQLSource produces the bound, executable form of a statement for one
// parameter object. Static sources return prebuilt SQL; dynamic sources
// evaluate their node tree per call. Implementations live in the
// scripting package.
type SQLSource interface {
	BoundStatement(param any) (*BoundStatement, error)
}

// SQLSourceFunc adapts a function to the SQLSource interface.
type SQLSourceFunc func(param any) (*BoundStatement, error)

func (f SQLSourceFunc) BoundStatement(param any) (*BoundStatement, error) {
	return f(param)
}
