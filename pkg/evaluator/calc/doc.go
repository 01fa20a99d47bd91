// Package calc implements a small MATLAB-like calculator over scalars and
// dense matrices.
//
//	x = [1 2; 3 4]
//	y = 2 * x
//	x / y
//	1:5 .* (1:5)
//
// Supported operators are + - * / and the elementwise product .*, unary
// minus, ranges a:b, parentheses and matrix literals with ',' or spaces
// between elements and ';' between rows. A trailing ';' suppresses the
// output; '%' starts a comment. The result of an expression statement is
// stored in ans.
package calc
