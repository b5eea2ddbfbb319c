package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RedirectResponse destino de navegación devuelto al entrar o salir de la sesión.
// Redirect vacío: la redirección ya se disparó para esta transición.
type RedirectResponse struct {
	Redirect string `json:"redirect,omitempty"`
}
