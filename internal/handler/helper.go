package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sekolahku/studentinfo/pkg/apperror"
	"github.com/sekolahku/studentinfo/pkg/response"
	"github.com/sekolahku/studentinfo/pkg/validator"
)

// bindingError converts a gin binding failure into the structured
// validation response.
func bindingError(c *gin.Context, err error) {
	response.Error(c, apperror.Validation(validator.FieldErrors(err)...))
}
