package courier

import "suki-be/internal/apperror"

var ErrCourierNotFound = apperror.NotFound("courier not found")
