/*
Copyright 2023 eatmoreapple

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package jdbcx

// ConnectionMetaData is an immutable snapshot of the backend's identity
// (spec.md §3). Every field is a plain string, so the zero value is
// comparable with == and usable as a map key without a custom hash.
type ConnectionMetaData struct {
	PackageName    string
	ProductName    string
	ProductVersion string
	DriverName     string
	DriverVersion  string
	UserName       string
	URL            string
}

// Product returns the dialect-cache key: "productName/productVersion"
// when both are set, else whichever of productName/packageName is
// non-empty (spec.md §3).
func (m ConnectionMetaData) Product() string {
	switch {
	case m.ProductName != "" && m.ProductVersion != "":
		return m.ProductName + "/" + m.ProductVersion
	case m.ProductName != "":
		return m.ProductName
	default:
		return m.PackageName
	}
}
