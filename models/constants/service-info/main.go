package serviceInfo

import "fmt"

type ServiceInfo string

var (
	SERVICE_NAME        ServiceInfo = "spatools Genotyping Service"
	SERVICE_WELCOME     ServiceInfo = "Welcome to the spatools genotype calling API!"
	SERVICE_DESCRIPTION ServiceInfo = "Depth-based SNP base calling and microsatellite peak filtering with stutter suppression."

	SERVICE_ARTIFACT    ServiceInfo = "spatools"
	SERVICE_VERSION     ServiceInfo = "0.1.0"
	SERVICE_TYPE_NO_VER ServiceInfo = ServiceInfo(fmt.Sprintf("org.spatools:%s", SERVICE_ARTIFACT))
	SERVICE_ID          ServiceInfo = SERVICE_TYPE_NO_VER
	SERVICE_TYPE        ServiceInfo = ServiceInfo(fmt.Sprintf("%s:%s", SERVICE_TYPE_NO_VER, SERVICE_VERSION))
)
