package handlebars

// SafeString marks a string as already escaped. Escaping mustaches emit it
// verbatim; helpers return one to inject markup or prebuilt fragments.
type SafeString string

func (s SafeString) String() string { return string(s) }
